package core

import (
	"context"
)

type (
	// EventSink receives a record every time the requirement changes.
	// Sub-threshold recomputations emit nothing.
	EventSink interface {
		RequirementUpdated(ctx context.Context, event *RequirementUpdatedEvent) error
	}

	RequirementUpdatedEvent struct {
		NewRequirement uint64 `json:"newRequirement"`
		Price          uint64 `json:"price"`
		Timestamp      int64  `json:"timestamp"`
	}
)

// MultiSink fans one event out to several sinks. The first error stops the
// fanout and is returned as-is.
type MultiSink []EventSink

func (m MultiSink) RequirementUpdated(ctx context.Context, event *RequirementUpdatedEvent) error {
	for _, sink := range m {
		if err := sink.RequirementUpdated(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
