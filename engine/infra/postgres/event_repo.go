package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

// EventCodes names the reference codes used when writing status events.
type EventCodes struct {
	StatusEventKind string
	StatusParamCode string
}

// EventRepo appends status-change events to app_event.
type EventRepo struct {
	db    DB
	refs  CodeResolver
	codes EventCodes
}

func NewEventRepo(db DB, refs CodeResolver, codes EventCodes) *EventRepo {
	return &EventRepo{db: db, refs: refs, codes: codes}
}

// RecordStatusEvent writes one event row. Each call is independent.
func (r *EventRepo) RecordStatusEvent(ctx context.Context, change *task.StatusChange) error {
	statusID, err := r.refs.Lookup(ctx, change.Status.String())
	if err != nil {
		return fmt.Errorf("resolve status %s: %w", change.Status, err)
	}
	paramID, err := r.refs.Lookup(ctx, r.codes.StatusParamCode)
	if err != nil {
		return fmt.Errorf("resolve status param code: %w", err)
	}
	kindID, err := r.refs.Lookup(ctx, r.codes.StatusEventKind)
	if err != nil {
		return fmt.Errorf("resolve status event kind: %w", err)
	}
	entry := map[string]string{strconv.FormatInt(paramID, 10): strconv.FormatInt(statusID, 10)}
	if change.Status == task.StatusCancelled {
		entry["error"] = change.Reason
	}
	data, err := json.Marshal([]map[string]string{entry})
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	query, args, err := squirrel.Insert("app_event").
		Columns(
			"app_event_id_sotr",
			"app_event_id_rec",
			"app_event_dt",
			"app_event_data",
			"app_event_text",
			"app_event_vid",
			"app_event_del",
		).
		Values(change.UserID, change.EntityID, change.At, string(data), eventText(change), kindID, 0).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build event insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert status event for entity %d: %w", change.EntityID, err)
	}
	logger.FromContext(ctx).Info(
		"Status event recorded",
		"user_id", change.UserID,
		"entity_id", change.EntityID,
		"kind", change.Kind.String(),
		"status", change.Status.String(),
	)
	return nil
}

func eventText(change *task.StatusChange) string {
	return fmt.Sprintf("New %s status: %s", change.Kind, change.Status)
}
