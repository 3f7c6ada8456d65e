package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{name: "minimal", in: CreateInput{URL: "https://example.com", Description: "Example site"}},
		{name: "http with path and query", in: CreateInput{URL: "http://example.com/a?b=c", Description: "x"}},
		{name: "custom code", in: CreateInput{URL: "https://example.com", Description: "x", Code: "my_code-1"}},
		{name: "padded url", in: CreateInput{URL: " \thttps://example.com/page\n", Description: "x"}},
		{name: "blank url", in: CreateInput{URL: "   ", Description: "x"}, wantErr: ErrInvalidURL},
		{name: "missing url", in: CreateInput{Description: "x"}, wantErr: ErrInvalidURL},
		{name: "relative url", in: CreateInput{URL: "not-a-url", Description: "x"}, wantErr: ErrInvalidURL},
		{name: "ftp scheme", in: CreateInput{URL: "ftp://example.com", Description: "x"}, wantErr: ErrInvalidURL},
		{name: "javascript scheme", in: CreateInput{URL: "javascript:alert(1)", Description: "x"}, wantErr: ErrInvalidURL},
		{name: "no host", in: CreateInput{URL: "https://", Description: "x"}, wantErr: ErrInvalidURL},
		{name: "empty description", in: CreateInput{URL: "https://example.com", Description: ""}, wantErr: ErrInvalidDescription},
		{name: "blank description", in: CreateInput{URL: "https://example.com", Description: " \t\n"}, wantErr: ErrInvalidDescription},
		{name: "code too short", in: CreateInput{URL: "https://example.com", Description: "x", Code: "ab"}, wantErr: ErrInvalidCode},
		{name: "code too long", in: CreateInput{URL: "https://example.com", Description: "x", Code: strings.Repeat("a", 65)}, wantErr: ErrInvalidCode},
		{name: "code bad charset", in: CreateInput{URL: "https://example.com", Description: "x", Code: "abc/def"}, wantErr: ErrInvalidCode},
		// Description is checked before the code, so a bad description wins.
		{name: "description before code", in: CreateInput{URL: "https://example.com", Description: "", Code: "a"}, wantErr: ErrInvalidDescription},
		{name: "url before everything", in: CreateInput{URL: "x", Description: "", Code: "a"}, wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.in.URL), got.URL)
			assert.Equal(t, tt.in.Description, got.Description)
			assert.Equal(t, tt.in.Code, got.Code)
		})
	}
}

func TestValidate_TrimsURL(t *testing.T) {
	got, err := Validate(CreateInput{URL: " https://example.com/page ", Description: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", got.URL)
}

func TestValidate_NotePassthrough(t *testing.T) {
	got, err := Validate(CreateInput{URL: "https://example.com", Description: "x", Note: "  <b>kept</b> "})
	require.NoError(t, err)
	assert.Equal(t, "  <b>kept</b> ", got.Note)
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("abc"))
	assert.True(t, IsValidCode(strings.Repeat("Z", 64)))
	assert.True(t, IsValidCode("a_b-C9"))
	assert.False(t, IsValidCode(""))
	assert.False(t, IsValidCode("ab"))
	assert.False(t, IsValidCode("abc def"))
	assert.False(t, IsValidCode("åbc"))
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("registry: %w", ErrStoreUnavailable.Wrap(errors.New("connection refused")))

	assert.True(t, errors.Is(wrapped, ErrStoreUnavailable))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindStoreUnavailable, KindOf(wrapped))
	assert.Equal(t, "Store unavailable", PublicMessage(wrapped, "fallback"))
	assert.Contains(t, wrapped.Error(), "connection refused")

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "fallback", PublicMessage(errors.New("plain"), "fallback"))
	assert.Equal(t, "code_conflict", KindCodeConflict.String())
}
