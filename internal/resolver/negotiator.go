// Package resolver turns a short code into an HTTP response. It decides
// between a JSON info payload, a raw redirect and a rendered preview page.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"quicklook/internal/domain"
	"quicklook/internal/preview"
)

// DescriptionHeader carries the record's description on raw redirects.
const DescriptionHeader = "X-Shortlink-Description"

// Mode is the output form chosen for a resolution.
type Mode int

const (
	ModeNotFound Mode = iota
	ModeJSONInfo
	ModeRawRedirect
	ModePreview
)

func (m Mode) String() string {
	switch m {
	case ModeJSONInfo:
		return "json_info"
	case ModeRawRedirect:
		return "raw_redirect"
	case ModePreview:
		return "preview"
	default:
		return "not_found"
	}
}

// Decision is the outcome of Resolve and the input of Apply.
type Decision struct {
	Mode        Mode
	Code        string
	URL         string
	Description string
	// WithDescriptionHeader is set on raw redirects requested with raw=1.
	WithDescriptionHeader bool
}

// LinkFinder fetches a record by code.
type LinkFinder interface {
	Lookup(ctx context.Context, code string) (domain.LinkRecord, error)
}

// Renderer produces the preview page.
type Renderer interface {
	Render(w io.Writer, p preview.Page) error
}

// Negotiator resolves codes and writes the negotiated response.
type Negotiator struct {
	links    LinkFinder
	renderer Renderer
	log      logrus.FieldLogger
}

func NewNegotiator(links LinkFinder, renderer Renderer, logger logrus.FieldLogger) *Negotiator {
	return &Negotiator{
		links:    links,
		renderer: renderer,
		log:      logger.WithField("component", "resolver"),
	}
}

// Resolve looks up code and picks the response mode. Priority is strict:
// info=1 wins over raw=1, which wins over Accept sniffing.
// A missing record yields ModeNotFound with a nil error; only store
// failures are returned as errors.
func (n *Negotiator) Resolve(ctx context.Context, code string, query url.Values, header http.Header) (Decision, error) {
	rec, err := n.links.Lookup(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return Decision{Mode: ModeNotFound, Code: code}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Code: rec.Code, URL: rec.URL, Description: rec.Description}
	switch {
	case query.Get("info") == "1":
		d.Mode = ModeJSONInfo
	case query.Get("raw") == "1":
		d.Mode = ModeRawRedirect
		d.WithDescriptionHeader = true
	case strings.Contains(header.Get("Accept"), "text/html"):
		d.Mode = ModePreview
	default:
		d.Mode = ModeRawRedirect
	}
	return d, nil
}

// Apply writes the response for d.
func (n *Negotiator) Apply(w http.ResponseWriter, r *http.Request, d Decision) {
	switch d.Mode {
	case ModeJSONInfo:
		writeJSON(w, http.StatusOK, map[string]string{
			"code":        d.Code,
			"url":         d.URL,
			"description": d.Description,
		})
	case ModeRawRedirect:
		if d.WithDescriptionHeader {
			w.Header().Set(DescriptionHeader, d.Description)
		}
		http.Redirect(w, r, d.URL, http.StatusFound)
	case ModePreview:
		// Render fully before sending headers so a failure can still be a 500.
		var buf bytes.Buffer
		err := n.renderer.Render(&buf, preview.Page{Code: d.Code, URL: d.URL, Description: d.Description})
		if err != nil {
			n.log.WithError(err).WithField("code", d.Code).Error("Failed to render preview")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Short link not found"})
	}
}

// ServeCode resolves code and applies the decision in one step.
func (n *Negotiator) ServeCode(w http.ResponseWriter, r *http.Request, code string) {
	d, err := n.Resolve(r.Context(), code, r.URL.Query(), r.Header)
	if err != nil {
		n.log.WithError(err).WithField("code", code).Error("Failed to resolve code")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}
	n.log.WithFields(logrus.Fields{"code": code, "mode": d.Mode.String()}).Debug("Resolved code")
	n.Apply(w, r, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
