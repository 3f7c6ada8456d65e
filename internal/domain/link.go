package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// LinkRecord is the persisted entity for one short code.
type LinkRecord struct {
	// Code is the unique key of the record. It never changes once assigned.
	Code string `json:"code"`

	// URL is the redirect target, always an absolute http(s) URL.
	URL string `json:"url"`

	// Description is a human-readable summary shown on the preview page.
	// It is free text and may contain markup, so renderers must escape it.
	Description string `json:"description"`

	// Note is an optional free-form annotation.
	Note string `json:"note"`

	// CreatedAt is the creation time in milliseconds since the Unix epoch.
	CreatedAt int64 `json:"createdAt"`
}

// CreateInput carries the caller-supplied fields of a create request.
// An empty Code asks the registry to generate one.
type CreateInput struct {
	URL         string
	Description string
	Code        string
	Note        string
}

// ValidatedFields is the output of Validate.
type ValidatedFields struct {
	URL         string
	Description string
	Code        string
	Note        string
}

var codePattern = regexp.MustCompile(`^[0-9a-zA-Z_-]{3,64}$`)

// IsValidCode reports whether code satisfies the charset and length rule.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// IsHTTPURL reports whether raw parses as an absolute URL with an http or
// https scheme and a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Validate checks a create request. Checks run in a fixed order (url,
// description, code) so the first failing field decides the error.
// The returned URL is trimmed, since that is the form that was checked.
func Validate(in CreateInput) (ValidatedFields, error) {
	target := strings.TrimSpace(in.URL)
	if target == "" || !IsHTTPURL(target) {
		return ValidatedFields{}, ErrInvalidURL
	}
	if strings.TrimSpace(in.Description) == "" {
		return ValidatedFields{}, ErrInvalidDescription
	}
	if in.Code != "" && !IsValidCode(in.Code) {
		return ValidatedFields{}, ErrInvalidCode
	}
	return ValidatedFields{
		URL:         target,
		Description: in.Description,
		Code:        in.Code,
		Note:        in.Note,
	}, nil
}
