package game

import (
	"chaos-room/internal/content"
	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/rs/zerolog/log"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingTask
	PhaseCountdown
	PhaseAwaitingJudgement
	PhaseResultsShown
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingTask:
		return "awaiting_task"
	case PhaseCountdown:
		return "countdown"
	case PhaseAwaitingJudgement:
		return "awaiting_judgement"
	case PhaseResultsShown:
		return "results_shown"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Controller drives the round lifecycle. Every session has one but it only
// acts while the local player is host. All methods run on the session loop;
// generator and judge calls run in their own goroutines and report back
// through the inbox.
type Controller struct {
	s         *Session
	generator content.SafeGenerator
	judge     content.SafeJudge
	// judging is the round a verdict has been requested for.
	judging int
	// resumeFrom is the phase to return to if a generated task is rejected.
	resumeFrom Phase
}

func newController(s *Session, generator content.TaskGenerator, judge content.Judge) *Controller {
	return &Controller{
		s:         s,
		generator: content.SafeGenerator{Inner: generator},
		judge:     content.SafeJudge{Inner: judge},
	}
}

func (c *Controller) startRound() error {
	s := c.s
	if !s.isHost() {
		return ErrNotHost
	}
	if s.state.Finished() {
		return ErrGameOver
	}
	if s.phase != PhaseIdle && s.phase != PhaseResultsShown {
		return ErrBusy
	}
	if s.state.Room.Round >= s.state.Room.MaxRounds {
		return ErrGameOver
	}

	round := s.state.Room.Round + 1
	players := s.state.Room.PlayerNames()
	c.resumeFrom = s.phase
	s.phase = PhaseAwaitingTask
	log.Info().Str("room", s.state.Room.Code).Int("round", round).Msg("generating task")

	ctx := s.ctx
	go func() {
		task := c.generator.Generate(ctx, round, players)
		s.post(taskGenerated{round: round, task: task})
	}()
	return nil
}

func (c *Controller) onTaskGenerated(round int, task protocol.Task) {
	s := c.s
	if s.phase != PhaseAwaitingTask || round != s.state.Room.Round+1 {
		log.Debug().Str("room", s.state.Room.Code).Int("round", round).Msg("stale task discarded")
		return
	}
	err := s.dispatchLocal(func(room.State) (protocol.Payload, error) {
		return protocol.StartGame{Task: task, Round: round}, nil
	})
	if s.state.Room.Round != round {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Int("round", round).Msg("round not started")
		s.phase = c.resumeFrom
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Int("round", round).Msg("round started locally only")
	}
}

// onPromoted picks up a round whose countdown already ran out under the
// previous host.
func (c *Controller) onPromoted() {
	s := c.s
	if s.ticker == nil && s.remaining == 0 && s.state.RoundOpen() {
		c.requestVerdict()
	}
}

func (c *Controller) onCountdownExpired() {
	if !c.s.isHost() {
		return
	}
	c.requestVerdict()
}

func (c *Controller) requestVerdict() {
	s := c.s
	round := s.state.Room.Round
	if !s.state.RoundOpen() || s.state.Room.CurrentTask == nil || c.judging == round {
		return
	}
	c.judging = round
	s.phase = PhaseAwaitingJudgement

	task := s.state.Room.CurrentTask.Clone()
	submissions := append([]room.Submission(nil), s.state.Submissions...)
	if task.Type == protocol.TaskDrawing {
		snapshot, err := s.canvas.SnapshotPNG()
		if err != nil {
			log.Warn().Err(err).Str("room", s.state.Room.Code).Msg("canvas snapshot failed")
		} else {
			submissions = append(submissions, room.Submission{
				PlayerName: content.CollaborativeName,
				Round:      round,
				Drawing:    snapshot,
			})
		}
	}
	log.Info().Str("room", s.state.Room.Code).Int("round", round).Int("submissions", len(submissions)).Msg("judging round")

	ctx := s.ctx
	go func() {
		verdict := c.judge.Decide(ctx, task, submissions)
		s.post(verdictReady{round: round, verdict: verdict})
	}()
}

// onVerdict finishes the round unless it has moved on while the judge was
// thinking.
func (c *Controller) onVerdict(round int, verdict protocol.WinnerInfo) {
	s := c.s
	if round != s.state.Room.Round || round <= s.state.ResolvedRound || !s.isHost() {
		log.Debug().Str("room", s.state.Room.Code).Int("round", round).Msg("stale verdict discarded")
		return
	}
	if err := s.dispatchLocal(func(room.State) (protocol.Payload, error) {
		return protocol.FinishRound{Round: round, Result: verdict}, nil
	}); err != nil {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Int("round", round).Msg("finish round")
	}
}
