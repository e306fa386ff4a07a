// Package store defines the ThreadStore interface for persisting
// tracked-thread state, plus its SQLite and in-memory implementations.
// The record shape belongs to the models package; the store only
// persists and indexes it.
package store

import (
	"context"
	"time"

	"github.com/nvandessel/threadwatch/internal/models"
)

// ThreadStore persists TrackedThread records and the bookkeeping
// around them. Implementations must write each record atomically: a
// crash mid-update leaves the prior record intact, never a partial
// one.
//
// Reads fail soft. A record that cannot be decoded (legacy shape,
// partial corruption) reads as absent (nil, nil) rather than as an
// error, because state accumulates over long lifetimes and one bad
// row must not halt the scheduler.
type ThreadStore interface {
	// PutThread inserts or replaces the record keyed by its RootURI.
	PutThread(ctx context.Context, thread *models.TrackedThread) error

	// GetThread returns the record for rootURI, or (nil, nil) when no
	// usable record exists.
	GetThread(ctx context.Context, rootURI string) (*models.TrackedThread, error)

	// ListThreads returns all decodable records, highest score first.
	// Corrupt rows are skipped with a warning.
	ListThreads(ctx context.Context) ([]*models.TrackedThread, error)

	// DeleteThread removes the record. Deleting an absent record is
	// not an error.
	DeleteThread(ctx context.Context, rootURI string) error

	// EngagedAcross unions the engaged participant sets of every
	// stored thread, so engagement in one thread carries into scoring
	// others.
	EngagedAcross(ctx context.Context) (map[string]bool, error)

	// FilterUnevaluated returns the subset of uris not yet recorded in
	// the evaluated-notification log, preserving input order.
	FilterUnevaluated(ctx context.Context, uris []string) ([]string, error)

	// MarkEvaluated appends uris to the evaluated-notification log and
	// truncates it to the most recent max entries.
	MarkEvaluated(ctx context.Context, uris []string, max int) error

	// LastRun and SetLastRun track when discovery last completed. A
	// store with no recorded run returns the zero time.
	LastRun(ctx context.Context) (time.Time, error)
	SetLastRun(ctx context.Context, at time.Time) error

	Close() error
}
