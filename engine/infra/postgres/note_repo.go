package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/mpdriver/mpdriver/engine/note"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

const noteStatusText = "Изменен статус уведомлений"

// NoteCodes names the event kinds and status param used for note events.
type NoteCodes struct {
	StatusEventKind  int64
	CreatedEventKind int64
	StatusParamCode  string
}

type noteRecord struct {
	ID     int64   `db:"id"`
	UserID int64   `db:"user_id"`
	TaskID *int64  `db:"task_id"`
	Status *int    `db:"status"`
	Type   *int    `db:"type"`
	Text   *string `db:"text"`
}

// NoteRepo reads app_note and appends note events to app_event.
type NoteRepo struct {
	db    DB
	refs  CodeResolver
	codes NoteCodes
}

func NewNoteRepo(db DB, refs CodeResolver, codes NoteCodes) *NoteRepo {
	return &NoteRepo{db: db, refs: refs, codes: codes}
}

// ListNotes returns the user's notes that are not deleted, oldest first.
func (r *NoteRepo) ListNotes(ctx context.Context, userID int64) ([]note.Note, error) {
	query, args, err := squirrel.Select(
		"id_app_note AS id",
		"app_note_id_sotr AS user_id",
		"app_note_id_app_task AS task_id",
		"app_note_status AS status",
		"app_note_tip AS type",
		"app_note_text AS text",
	).
		From("app_note").
		Where(squirrel.Eq{"app_note_id_sotr": userID, "app_note_del": 0}).
		OrderBy("id_app_note").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notes query: %w", err)
	}
	var records []noteRecord
	if err := pgxscan.Select(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("fetch notes for user %d: %w", userID, err)
	}
	notes := make([]note.Note, 0, len(records))
	for i := range records {
		notes = append(notes, records[i].toNote())
	}
	return notes, nil
}

func (rec *noteRecord) toNote() note.Note {
	n := note.Note{ID: rec.ID, UserID: rec.UserID, TaskID: rec.TaskID}
	if rec.Status != nil {
		n.Status = *rec.Status
	}
	if rec.Type != nil {
		n.Type = *rec.Type
	}
	if rec.Text != nil {
		n.Text = *rec.Text
	}
	return n
}

// RecordNoteStatus writes a status-change event against the note, stamped
// with the database clock.
func (r *NoteRepo) RecordNoteStatus(ctx context.Context, change *note.StatusChange) error {
	paramID, err := r.refs.Lookup(ctx, r.codes.StatusParamCode)
	if err != nil {
		return fmt.Errorf("resolve status param code: %w", err)
	}
	data, err := json.Marshal([]map[string]string{
		{strconv.FormatInt(paramID, 10): strconv.Itoa(change.Status)},
	})
	if err != nil {
		return fmt.Errorf("marshal note event data: %w", err)
	}
	query, args, err := squirrel.Insert("app_event").
		Columns(
			"app_event_dt",
			"app_event_id_sotr",
			"app_event_text",
			"app_event_data",
			"app_event_vid",
			"app_event_id_rec",
			"app_event_del",
		).
		Values(squirrel.Expr("CURRENT_TIMESTAMP"), change.UserID, noteStatusText, string(data),
			r.codes.StatusEventKind, change.NoteID, 0).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build note status insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert status event for note %d: %w", change.NoteID, err)
	}
	return nil
}

// CreateNote writes a note-created event. The task link, when present, is
// carried in the event data.
func (r *NoteRepo) CreateNote(ctx context.Context, draft *note.Draft) error {
	var data *string
	if draft.TaskID != nil {
		raw, err := json.Marshal([]map[string]string{{"ID_APP_TASK": strconv.FormatInt(*draft.TaskID, 10)}})
		if err != nil {
			return fmt.Errorf("marshal note event data: %w", err)
		}
		s := string(raw)
		data = &s
	}
	query, args, err := squirrel.Insert("app_event").
		Columns(
			"app_event_dt",
			"app_event_id_sotr",
			"app_event_text",
			"app_event_data",
			"app_event_vid",
			"app_event_del",
		).
		Values(draft.CreatedAt, draft.UserID, draft.Text, data, r.codes.CreatedEventKind, 0).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build note insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert note for user %d: %w", draft.UserID, err)
	}
	logger.FromContext(ctx).Info("Note created", "user_id", draft.UserID)
	return nil
}
