package describe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDescriber struct {
	got Request
}

func (r *recordingDescriber) Describe(_ context.Context, req Request) (string, error) {
	r.got = req
	return "desc", nil
}

type fakeMetadata struct {
	title, description string
	err                error
	calls              int
}

func (f *fakeMetadata) ScrapeMetadata(context.Context, string) (string, string, error) {
	f.calls++
	return f.title, f.description, f.err
}

func TestService_ScrapedHint(t *testing.T) {
	inner := &recordingDescriber{}
	meta := &fakeMetadata{title: "Example Domain", description: "For use in examples"}
	svc := NewService(inner, meta, "server-key", testLogger())

	_, err := svc.Describe(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Example Domain For use in examples", inner.got.Hint)
	assert.Equal(t, "server-key", inner.got.APIKey)
	assert.True(t, svc.HasCredentials())
}

func TestService_CallerHintWins(t *testing.T) {
	inner := &recordingDescriber{}
	meta := &fakeMetadata{title: "ignored"}
	svc := NewService(inner, meta, "server-key", testLogger())

	_, err := svc.Describe(context.Background(), Request{URL: "https://example.com", Hint: "mine", APIKey: "caller-key"})
	require.NoError(t, err)
	assert.Equal(t, "mine", inner.got.Hint)
	assert.Equal(t, "caller-key", inner.got.APIKey)
	assert.Zero(t, meta.calls)
}

func TestService_ScrapeFailureIgnored(t *testing.T) {
	inner := &recordingDescriber{}
	svc := NewService(inner, &fakeMetadata{err: errors.New("no browser")}, "k", testLogger())

	_, err := svc.Describe(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Empty(t, inner.got.Hint)
}

func TestService_NoScrapeWithoutKeyOrValidURL(t *testing.T) {
	meta := &fakeMetadata{title: "t"}

	svc := NewService(&recordingDescriber{}, meta, "", testLogger())
	_, _ = svc.Describe(context.Background(), Request{URL: "https://example.com"})
	assert.False(t, svc.HasCredentials())

	svc = NewService(&recordingDescriber{}, meta, "k", testLogger())
	_, _ = svc.Describe(context.Background(), Request{URL: "not a url"})

	assert.Zero(t, meta.calls)
}

func TestService_NilMetadata(t *testing.T) {
	inner := &recordingDescriber{}
	svc := NewService(inner, nil, "k", testLogger())

	_, err := svc.Describe(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Empty(t, inner.got.Hint)
}
