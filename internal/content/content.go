package content

import (
	"context"
	"errors"
	"fmt"

	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/rs/zerolog/log"
)

// CollaborativeName labels the canvas snapshot submitted for drawing rounds.
const CollaborativeName = "Collaborative"

var ErrNoVerdict = errors.New("no verdict")

type TaskGenerator interface {
	GenerateTask(ctx context.Context, round int, players []string) (protocol.Task, error)
}

type Judge interface {
	Judge(ctx context.Context, task protocol.Task, submissions []room.Submission) (protocol.WinnerInfo, error)
}

// FallbackTask is returned whenever generation fails.
func FallbackTask() protocol.Task {
	return protocol.Task{
		ID:           "fallback",
		Type:         protocol.TaskVote,
		Title:        "DEMOCRACY!",
		Description:  "Who is the most suspicious person in this room?",
		TimerSeconds: 15,
	}
}

// FallbackVerdict is returned whenever judging fails.
func FallbackVerdict() protocol.WinnerInfo {
	return protocol.WinnerInfo{
		Winner: "The Void",
		Reason: "Democracy has failed us. The AI has taken over.",
	}
}

// SafeGenerator never fails: errors, panics and malformed tasks all resolve to
// FallbackTask.
type SafeGenerator struct {
	Inner TaskGenerator
}

func (g SafeGenerator) Generate(ctx context.Context, round int, players []string) (task protocol.Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Int("round", round).Msg("task generator panicked")
			task = FallbackTask()
		}
	}()
	if g.Inner == nil {
		return FallbackTask()
	}
	generated, err := g.Inner.GenerateTask(ctx, round, players)
	if err == nil {
		err = checkTask(generated)
	}
	if err != nil {
		log.Warn().Err(err).Int("round", round).Msg("task generation failed")
		return FallbackTask()
	}
	return generated
}

// SafeJudge never fails: errors, panics and empty verdicts all resolve to
// FallbackVerdict.
type SafeJudge struct {
	Inner Judge
}

func (j SafeJudge) Decide(ctx context.Context, task protocol.Task, submissions []room.Submission) (verdict protocol.WinnerInfo) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("task", task.ID).Msg("judge panicked")
			verdict = FallbackVerdict()
		}
	}()
	if j.Inner == nil {
		return FallbackVerdict()
	}
	result, err := j.Inner.Judge(ctx, task, submissions)
	if err == nil {
		err = protocol.Validator().Struct(result)
	}
	if err != nil {
		log.Warn().Err(err).Str("task", task.ID).Int("submissions", len(submissions)).Msg("judging failed")
		return FallbackVerdict()
	}
	return result
}

func checkTask(task protocol.Task) error {
	if err := protocol.Validator().Struct(task); err != nil {
		return fmt.Errorf("malformed task: %w", err)
	}
	return nil
}
