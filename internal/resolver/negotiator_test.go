package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quicklook/internal/domain"
	"quicklook/internal/preview"
)

type fakeFinder struct {
	records map[string]domain.LinkRecord
	err     error
}

func (f *fakeFinder) Lookup(_ context.Context, code string) (domain.LinkRecord, error) {
	if f.err != nil {
		return domain.LinkRecord{}, f.err
	}
	rec, ok := f.records[code]
	if !ok {
		return domain.LinkRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

var example = domain.LinkRecord{
	Code:        "abc",
	URL:         "https://example.com",
	Description: "Example site",
	CreatedAt:   1,
}

func newTestNegotiator(t *testing.T, finder LinkFinder) *Negotiator {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	renderer, err := preview.NewRenderer(0)
	require.NoError(t, err)
	return NewNegotiator(finder, renderer, logger)
}

func TestResolve_DecisionTable(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{records: map[string]domain.LinkRecord{"abc": example}})

	tests := []struct {
		name       string
		query      string
		accept     string
		wantMode   Mode
		wantHeader bool
	}{
		{name: "info wins with html accept", query: "info=1", accept: "text/html", wantMode: ModeJSONInfo},
		{name: "info wins with json accept", query: "info=1", accept: "application/json", wantMode: ModeJSONInfo},
		{name: "info wins over raw", query: "info=1&raw=1", accept: "text/html", wantMode: ModeJSONInfo},
		{name: "raw forces redirect for browsers", query: "raw=1", accept: "text/html,application/xhtml+xml", wantMode: ModeRawRedirect, wantHeader: true},
		{name: "raw without accept", query: "raw=1", wantMode: ModeRawRedirect, wantHeader: true},
		{name: "browser gets preview", accept: "text/html,application/xhtml+xml;q=0.9", wantMode: ModePreview},
		{name: "json client gets redirect", accept: "application/json", wantMode: ModeRawRedirect},
		{name: "no accept gets redirect", wantMode: ModeRawRedirect},
		{name: "info must equal 1", query: "info=true", accept: "application/json", wantMode: ModeRawRedirect},
		{name: "raw must equal 1", query: "raw=yes", accept: "text/html", wantMode: ModePreview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			h := http.Header{}
			if tt.accept != "" {
				h.Set("Accept", tt.accept)
			}

			d, err := n.Resolve(context.Background(), "abc", q, h)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, d.Mode)
			assert.Equal(t, tt.wantHeader, d.WithDescriptionHeader)
			assert.Equal(t, example.URL, d.URL)
			assert.Equal(t, example.Description, d.Description)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{})

	d, err := n.Resolve(context.Background(), "missing", url.Values{}, http.Header{})
	require.NoError(t, err)
	assert.Equal(t, ModeNotFound, d.Mode)
}

func TestResolve_StoreFailure(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{err: domain.ErrStoreUnavailable.Wrap(errors.New("down"))})

	_, err := n.Resolve(context.Background(), "abc", url.Values{}, http.Header{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func serve(n *Negotiator, target, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	n.ServeCode(rec, req, "abc")
	return rec
}

func TestServeCode(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{records: map[string]domain.LinkRecord{"abc": example}})

	t.Run("info", func(t *testing.T) {
		rec := serve(n, "/s/abc?info=1", "text/html")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{
			"code":        "abc",
			"url":         "https://example.com",
			"description": "Example site",
		}, body)
	})

	t.Run("raw", func(t *testing.T) {
		rec := serve(n, "/s/abc?raw=1", "text/html")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
		assert.Equal(t, "Example site", rec.Header().Get(DescriptionHeader))
	})

	t.Run("preview", func(t *testing.T) {
		rec := serve(n, "/s/abc", "text/html")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "Example site")
		assert.Empty(t, rec.Header().Get(DescriptionHeader))
	})

	t.Run("negotiated redirect", func(t *testing.T) {
		rec := serve(n, "/s/abc", "application/json")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
		assert.Empty(t, rec.Header().Get(DescriptionHeader))
	})
}

func TestServeCode_NotFound(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{})

	rec := serve(n, "/s/abc", "text/html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Short link not found"}`, rec.Body.String())
}

func TestServeCode_StoreFailure(t *testing.T) {
	n := newTestNegotiator(t, &fakeFinder{err: domain.ErrStoreUnavailable})

	rec := serve(n, "/s/abc", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type brokenRenderer struct{}

func (brokenRenderer) Render(w io.Writer, _ preview.Page) error {
	_, _ = io.WriteString(w, "<!doctype html><p>half")
	return errors.New("template exploded")
}

func TestServeCode_RenderFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	n := NewNegotiator(&fakeFinder{records: map[string]domain.LinkRecord{"abc": example}}, brokenRenderer{}, logger)

	rec := serve(n, "/s/abc", "text/html")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "half")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "preview", ModePreview.String())
	assert.Equal(t, "not_found", ModeNotFound.String())
}
