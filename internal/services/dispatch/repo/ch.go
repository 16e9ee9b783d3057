package repo

import (
	"context"

	"lightbox/internal/platform/store"
	"lightbox/internal/services/dispatch/domain"
)

// NewCHSink returns an EngagementSink that appends rows to the
// lightbox.engagement_events fact table
func NewCHSink(ch store.Clickhouse) domain.EngagementSink {
	return &chSink{ch: ch}
}

type chSink struct{ ch store.Clickhouse }

// Append implements domain.EngagementSink. Column order matches the
// engagement_events DDL: event_id, kind, shot_id, actor_id, at
func (s *chSink) Append(ctx context.Context, evs []domain.EngagementEvent) error {
	if len(evs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(evs))
	for _, e := range evs {
		rows = append(rows, []any{e.EventID, e.Kind, e.ShotID, e.ActorID, e.At})
	}
	return s.ch.Insert(ctx, "lightbox.engagement_events", rows)
}
