package content

import (
	"context"

	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/stretchr/testify/mock"
)

// --- TaskGenerator ---

type MockTaskGenerator struct {
	mock.Mock
}

func (m *MockTaskGenerator) GenerateTask(ctx context.Context, round int, players []string) (protocol.Task, error) {
	args := m.Called(ctx, round, players)
	return args.Get(0).(protocol.Task), args.Error(1)
}

// --- Judge ---

type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) Judge(ctx context.Context, task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error) {
	args := m.Called(ctx, task, submissions)
	return args.Get(0).(protocol.WinnerInfo), args.Error(1)
}

type panickingGenerator struct{}

func (panickingGenerator) GenerateTask(context.Context, int, []string) (protocol.Task, error) {
	panic("model exploded")
}

type panickingJudge struct{}

func (panickingJudge) Judge(context.Context, protocol.Task, []room.Submission) (protocol.WinnerInfo, error) {
	panic("model exploded")
}
