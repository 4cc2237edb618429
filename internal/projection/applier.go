// Package projection replays outbox events into the secondary store.
package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmehdipour/shift-scheduler/internal/model"
	"github.com/jmehdipour/shift-scheduler/internal/repository"
)

// ErrUnknownAggregate is returned for events whose aggregate type has no
// registered projector.
var ErrUnknownAggregate = errors.New("unknown aggregate type")

// Outcome is what a successful projection did to the secondary store.
type Outcome string

const (
	Upserted Outcome = "upserted"
	Removed  Outcome = "removed"
	// Skipped means the entity is gone from the primary; a later Deleted
	// event will clean up the secondary.
	Skipped Outcome = "skipped"
)

// Projector replays one event into the secondary store.
type Projector interface {
	Project(ctx context.Context, ev model.OutboxEvent) (Outcome, error)
}

// Applier dispatches events to projectors by aggregate type.
type Applier struct {
	projectors map[model.AggregateType]Projector
}

func NewApplier() *Applier {
	return &Applier{projectors: map[model.AggregateType]Projector{}}
}

// Register binds p to tag, replacing any previous binding.
func (a *Applier) Register(tag model.AggregateType, p Projector) *Applier {
	a.projectors[tag] = p
	return a
}

// Knows reports whether tag has a projector.
func (a *Applier) Knows(tag model.AggregateType) bool {
	_, ok := a.projectors[tag]
	return ok
}

func (a *Applier) Apply(ctx context.Context, ev model.OutboxEvent) (Outcome, error) {
	p, ok := a.projectors[ev.AggregateType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregate, ev.AggregateType)
	}
	return p.Project(ctx, ev)
}

// Bind returns a projector that re-reads the entity from the primary and
// upserts the current state into the secondary. The event payload is not
// trusted: replaying an old event still writes the latest state.
func Bind[T any](primary repository.Reader[T], secondary repository.Sink[T]) Projector {
	return &projector[T]{primary: primary, secondary: secondary}
}

type projector[T any] struct {
	primary   repository.Reader[T]
	secondary repository.Sink[T]
}

func (p *projector[T]) Project(ctx context.Context, ev model.OutboxEvent) (Outcome, error) {
	switch ev.EventType {
	case model.EventDeleted:
		if err := p.secondary.Remove(ctx, ev.AggregateID); err != nil {
			return "", fmt.Errorf("remove %s %d: %w", ev.AggregateType, ev.AggregateID, err)
		}
		return Removed, nil

	case model.EventCreated, model.EventUpdated:
		e, err := p.primary.Get(ctx, ev.AggregateID)
		if err != nil {
			return "", fmt.Errorf("read %s %d: %w", ev.AggregateType, ev.AggregateID, err)
		}
		if e == nil {
			return Skipped, nil
		}
		if err := p.secondary.Upsert(ctx, e); err != nil {
			return "", fmt.Errorf("upsert %s %d: %w", ev.AggregateType, ev.AggregateID, err)
		}
		return Upserted, nil

	default:
		return "", fmt.Errorf("unknown event type %q", ev.EventType)
	}
}
