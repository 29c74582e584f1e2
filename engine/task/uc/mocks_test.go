package uc

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
)

// MockRowSource implements RowSource for testing
type MockRowSource struct {
	mock.Mock
}

func (m *MockRowSource) FetchTaskRows(ctx context.Context, userID int64) ([]aggregate.Row, error) {
	args := m.Called(ctx, userID)
	rows, _ := args.Get(0).([]aggregate.Row)
	return rows, args.Error(1)
}

// MockSink implements Sink for testing
type MockSink struct {
	mock.Mock
}

func (m *MockSink) RecordStatusEvent(ctx context.Context, change *task.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}
