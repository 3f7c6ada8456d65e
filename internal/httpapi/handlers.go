package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quicklook/internal/describe"
	"quicklook/internal/domain"
)

const maxBodyBytes = 1 << 20

type linkResponse struct {
	Code        string `json:"code"`
	URL         string `json:"url"`
	CreatedAt   int64  `json:"createdAt"`
	Note        string `json:"note"`
	Description string `json:"description"`
}

func toLinkResponse(rec domain.LinkRecord) linkResponse {
	return linkResponse{
		Code:        rec.Code,
		URL:         rec.URL,
		CreatedAt:   rec.CreatedAt,
		Note:        rec.Note,
		Description: rec.Description,
	}
}

type describeRequest struct {
	URL      string `json:"url"`
	Hint     string `json:"hint"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Resolve handles GET /s/{code}.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.resolver.ServeCode(w, r, chi.URLParam(r, "code"))
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCreateInput(r.Body)
	if !ok {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidURL.Msg)
		return
	}

	rec, err := h.links.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLinkResponse(rec))
}

// GetLink handles GET /api/links/{code}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	rec, err := h.links.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLinkResponse(rec))
}

// Describe handles POST /api/describe. Every failure, upstream ones included,
// is reported as 400 with the error message.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request) {
	var req *describeRequest
	if err := decodeJSON(r.Body, &req); err != nil || req == nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest.Msg)
		return
	}

	description, err := h.describer.Describe(r.Context(), describe.Request{
		URL:      req.URL,
		Hint:     req.Hint,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Endpoint: req.Endpoint,
	})
	if err != nil {
		h.log.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Warn("Describe failed")
		writeError(w, http.StatusBadRequest, domain.PublicMessage(err, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": description})
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(domain.KindOf(err))
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("Request failed")
	}
	writeError(w, status, domain.PublicMessage(err, http.StatusText(status)))
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidURL, domain.KindInvalidDescription, domain.KindInvalidCode,
		domain.KindInvalidRequest, domain.KindUpstreamFailure:
		return http.StatusBadRequest
	case domain.KindCodeConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindGenerationExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeCreateInput reads the create body. url and description must be JSON
// strings; code and note accept any truthy scalar and turn falsy values into
// the empty string. ok is false when the body is not a JSON object.
func decodeCreateInput(body io.Reader) (in domain.CreateInput, ok bool) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(body, &fields); err != nil || fields == nil {
		return domain.CreateInput{}, false
	}

	return domain.CreateInput{
		URL:         stringField(fields["url"]),
		Description: stringField(fields["description"]),
		Code:        coerceField(fields["code"]),
		Note:        coerceField(fields["note"]),
	}, true
}

// decodeJSON decodes exactly one JSON value from body. Anything but
// whitespace after it is an error.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// stringField returns raw when it is a JSON string and "" otherwise.
func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func coerceField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return t.String()
	default:
		// Objects and arrays keep their JSON text; they never form a valid code.
		return string(bytes.TrimSpace(raw))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
