package domain

import "errors"

// Kind classifies an Error so callers can branch without parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindInvalidDescription
	KindInvalidCode
	KindCodeConflict
	KindNotFound
	KindStoreUnavailable
	KindUpstreamFailure
	KindGenerationExhausted
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindInvalidDescription:
		return "invalid_description"
	case KindInvalidCode:
		return "invalid_code"
	case KindCodeConflict:
		return "code_conflict"
	case KindNotFound:
		return "not_found"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindGenerationExhausted:
		return "generation_exhausted"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by the registry and its collaborators.
// Msg is safe to show to API clients; Err holds the internal cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound)
// holds for wrapped variants too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Err: cause}
}

var (
	ErrInvalidURL          = &Error{Kind: KindInvalidURL, Msg: "Invalid url (must be http/https)"}
	ErrInvalidDescription  = &Error{Kind: KindInvalidDescription, Msg: "Invalid description"}
	ErrInvalidCode         = &Error{Kind: KindInvalidCode, Msg: "Invalid code"}
	ErrCodeConflict        = &Error{Kind: KindCodeConflict, Msg: "Code already exists"}
	ErrNotFound            = &Error{Kind: KindNotFound, Msg: "Not found"}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable, Msg: "Store unavailable"}
	ErrUpstreamFailure     = &Error{Kind: KindUpstreamFailure, Msg: "Upstream failure"}
	ErrGenerationExhausted = &Error{Kind: KindGenerationExhausted, Msg: "Could not allocate a unique code"}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest, Msg: "Invalid request body"}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-facing message of err, falling back to
// fallback when err carries no *Error.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
