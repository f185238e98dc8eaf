package game

import (
	"context"

	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/stretchr/testify/mock"
)

type MockTaskGenerator struct {
	mock.Mock
}

func (m *MockTaskGenerator) GenerateTask(ctx context.Context, round int, players []string) (protocol.Task, error) {
	args := m.Called(ctx, round, players)
	return args.Get(0).(protocol.Task), args.Error(1)
}

type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) Judge(ctx context.Context, task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error) {
	args := m.Called(ctx, task, submissions)
	return args.Get(0).(protocol.WinnerInfo), args.Error(1)
}
