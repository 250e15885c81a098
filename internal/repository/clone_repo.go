package repository

import (
	"context"

	"github.com/user/clone-service/internal/entity"
)

// CloneRepository stores clone records.
type CloneRepository interface {
	Insert(ctx context.Context, rec *entity.CloneRecord) error
	// Update applies a partial update. Unknown ids return ErrNotFound.
	Update(ctx context.Context, id string, upd entity.CloneUpdate) error
	FindByID(ctx context.Context, id string) (*entity.CloneRecord, error)
}

// EventLogRepository archives the progress stream of each clone for replay.
type EventLogRepository interface {
	Append(ctx context.Context, cloneID string, ev entity.Event) error
	// Range returns events with Seq >= fromSeq in order.
	Range(ctx context.Context, cloneID string, fromSeq int64) ([]entity.Event, error)
}

// InFlightRepository guards against cloning the same URL concurrently.
type InFlightRepository interface {
	// Acquire marks url as in flight. It returns ErrCloneInFlight when
	// another clone of url holds the mark.
	Acquire(ctx context.Context, url, cloneID string) error
	// Release drops the mark on url only if cloneID still holds it.
	Release(ctx context.Context, url, cloneID string) error
}

// ArtifactStore keeps generated artifacts (screenshots, project trees, static HTML).
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	URL(ctx context.Context, key string) (string, error)
}
