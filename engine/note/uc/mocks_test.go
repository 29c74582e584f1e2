package uc

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mpdriver/mpdriver/engine/note"
)

// MockStore implements Store for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListNotes(ctx context.Context, userID int64) ([]note.Note, error) {
	args := m.Called(ctx, userID)
	notes, _ := args.Get(0).([]note.Note)
	return notes, args.Error(1)
}

func (m *MockStore) RecordNoteStatus(ctx context.Context, change *note.StatusChange) error {
	return m.Called(ctx, change).Error(0)
}

func (m *MockStore) CreateNote(ctx context.Context, draft *note.Draft) error {
	return m.Called(ctx, draft).Error(0)
}
