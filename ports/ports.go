// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Spec Resource Ports
// -----------------------------------------------------------------------------

// ErrSpecNotFound is returned by a SpecSource that does not hold a resource.
var ErrSpecNotFound = errors.New("spec resource not found")

// SpecSource reads raw spec resources by name, for example
// "apispec/core.config.json".
type SpecSource interface {
	ReadSpec(ctx context.Context, name string) ([]byte, error)
}

// SpecRevision is one stored version of a spec resource.
type SpecRevision struct {
	ID        string
	Name      string
	Document  []byte
	CreatedAt time.Time
}

// SpecStore persists spec resources. The latest revision of a name is the
// one ReadSpec returns.
type SpecStore interface {
	SpecSource

	// Put stores a new revision of the named spec.
	Put(ctx context.Context, name string, document []byte) (SpecRevision, error)

	// Revisions returns all revisions of a spec, newest first.
	Revisions(ctx context.Context, name string) ([]SpecRevision, error)

	// Names returns the stored spec names in sorted order.
	Names(ctx context.Context) ([]string, error)

	// Delete removes every revision of the named spec.
	Delete(ctx context.Context, name string) error
}
