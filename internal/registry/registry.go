// Package registry creates and looks up link records in a key-value store.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"quicklook/internal/codegen"
	"quicklook/internal/domain"
	"quicklook/internal/storage"
)

// storedLink is the value persisted under link:<code>. The code itself lives
// only in the key.
type storedLink struct {
	URL         string `json:"url"`
	CreatedAt   int64  `json:"createdAt"`
	Note        string `json:"note"`
	Description string `json:"description"`
}

// Registry orchestrates validation, code allocation and persistence.
type Registry struct {
	store storage.Store
	gen   *codegen.Generator
	now   func() time.Time
	log   logrus.FieldLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a Registry over store.
func New(store storage.Store, gen *codegen.Generator, logger logrus.FieldLogger, opts ...Option) *Registry {
	r := &Registry{
		store: store,
		gen:   gen,
		now:   time.Now,
		log:   logger.WithField("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates in, allocates or confirms the code and persists the record.
func (r *Registry) Create(ctx context.Context, in domain.CreateInput) (domain.LinkRecord, error) {
	fields, err := domain.Validate(in)
	if err != nil {
		return domain.LinkRecord{}, err
	}

	code := fields.Code
	generated := code == ""
	if generated {
		// Only failures of the existence check are store failures; anything
		// else from the generator (e.g. the entropy source) is internal.
		code, err = r.gen.Generate(ctx, func(ctx context.Context, c string) (bool, error) {
			taken, err := r.exists(ctx, c)
			if err != nil {
				return false, domain.ErrStoreUnavailable.Wrap(err)
			}
			return taken, nil
		})
		if err != nil {
			return domain.LinkRecord{}, fmt.Errorf("generate code: %w", err)
		}
	} else {
		taken, err := r.exists(ctx, code)
		if err != nil {
			return domain.LinkRecord{}, domain.ErrStoreUnavailable.Wrap(err)
		}
		if taken {
			return domain.LinkRecord{}, domain.ErrCodeConflict
		}
	}

	rec := storedLink{
		URL:         fields.URL,
		CreatedAt:   r.now().UnixMilli(),
		Note:        fields.Note,
		Description: fields.Description,
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return domain.LinkRecord{}, fmt.Errorf("marshal link %s: %w", code, err)
	}

	log := r.log.WithFields(logrus.Fields{"code": code, "generated": generated})

	// A conditional write closes the window between the existence check
	// above and this write.
	err = r.store.PutIfAbsent(ctx, storage.LinkKey(code), value)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrKeyExists) && generated:
		log.Warn("Generated code collided on write")
		return domain.LinkRecord{}, domain.ErrGenerationExhausted
	case errors.Is(err, storage.ErrKeyExists):
		log.Info("Code taken by a concurrent create")
		return domain.LinkRecord{}, domain.ErrCodeConflict
	default:
		log.WithError(err).Error("Failed to persist link")
		return domain.LinkRecord{}, domain.ErrStoreUnavailable.Wrap(err)
	}

	log.Info("Link created")
	return rec.toRecord(code), nil
}

// Lookup fetches the record stored under code. Absent and undecodable values
// are both reported as domain.ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, code string) (domain.LinkRecord, error) {
	value, err := r.store.Get(ctx, storage.LinkKey(code))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.LinkRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.LinkRecord{}, domain.ErrStoreUnavailable.Wrap(err)
	}

	var rec *storedLink
	if err := json.Unmarshal(value, &rec); err != nil || rec == nil {
		r.log.WithField("code", code).WithError(err).Warn("Stored link is not decodable")
		return domain.LinkRecord{}, domain.ErrNotFound
	}
	return rec.toRecord(code), nil
}

func (r *Registry) exists(ctx context.Context, code string) (bool, error) {
	_, err := r.store.Get(ctx, storage.LinkKey(code))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *storedLink) toRecord(code string) domain.LinkRecord {
	return domain.LinkRecord{
		Code:        code,
		URL:         s.URL,
		Description: s.Description,
		Note:        s.Note,
		CreatedAt:   s.CreatedAt,
	}
}
