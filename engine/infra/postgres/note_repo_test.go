package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpdriver/mpdriver/engine/note"
)

var noteCodes = NoteCodes{StatusEventKind: 8797, CreatedEventKind: 8795, StatusParamCode: "APP_STATUS"}

func TestNoteRepo_ListNotes(t *testing.T) {
	t.Run("Should list live notes of the user", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)

		rows := mockPool.NewRows([]string{"id", "user_id", "task_id", "status", "type", "text"}).
			AddRow(int64(40), int64(7), ptr(int64(1)), ptr(0), ptr(1), ptr("Dock 4 is closed")).
			AddRow(int64(41), int64(7), nil, nil, nil, nil)
		mockPool.ExpectQuery("SELECT (.+) FROM app_note WHERE app_note_del = \\$1 AND app_note_id_sotr = \\$2 ORDER BY id_app_note").
			WithArgs(0, int64(7)).
			WillReturnRows(rows)

		notes, err := repo.ListNotes(testCtx(), 7)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, int64(1), *notes[0].TaskID)
		assert.Equal(t, 1, notes[0].Type)
		assert.Equal(t, "Dock 4 is closed", notes[0].Text)
		assert.Nil(t, notes[1].TaskID)
		assert.Empty(t, notes[1].Text)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should wrap query errors", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)
		mockPool.ExpectQuery("SELECT (.+) FROM app_note").WillReturnError(errors.New("timeout"))

		_, err = repo.ListNotes(testCtx(), 7)
		assert.ErrorContains(t, err, "fetch notes for user 7")
	})
}

func TestNoteRepo_RecordNoteStatus(t *testing.T) {
	t.Run("Should insert a note status event keyed by the status param", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)
		mockPool.ExpectExec("INSERT INTO app_event \\(.+\\) VALUES \\(CURRENT_TIMESTAMP,").
			WithArgs(int64(7), noteStatusText, `[{"8794":"2"}]`, int64(8797), int64(41), 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.RecordNoteStatus(testCtx(), &note.StatusChange{UserID: 7, NoteID: 41, Status: 2})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should fail when the status param code is unknown", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		codes := noteCodes
		codes.StatusParamCode = "MISSING"
		repo := NewNoteRepo(mockPool, newMapResolver(), codes)

		err = repo.RecordNoteStatus(testCtx(), &note.StatusChange{UserID: 7, NoteID: 41, Status: 2})
		assert.ErrorContains(t, err, "status param code")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestNoteRepo_CreateNote(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	t.Run("Should carry the task link in the event data", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)
		mockPool.ExpectExec("INSERT INTO app_event").
			WithArgs(at, int64(7), "Gate code changed", ptr(`[{"ID_APP_TASK":"3"}]`), int64(8795), 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		taskID := int64(3)
		err = repo.CreateNote(testCtx(), &note.Draft{UserID: 7, Text: "Gate code changed", CreatedAt: at, TaskID: &taskID})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should leave the event data empty without a task", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)
		mockPool.ExpectExec("INSERT INTO app_event").
			WithArgs(at, int64(7), "Shift moved", (*string)(nil), int64(8795), 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.CreateNote(testCtx(), &note.Draft{UserID: 7, Text: "Shift moved", CreatedAt: at})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should wrap insert failures", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewNoteRepo(mockPool, newMapResolver(), noteCodes)
		mockPool.ExpectExec("INSERT INTO app_event").WillReturnError(errors.New("disk full"))

		err = repo.CreateNote(testCtx(), &note.Draft{UserID: 7, Text: "x", CreatedAt: at})
		assert.ErrorContains(t, err, "insert note for user 7")
	})
}
