package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"chaos-room/internal/canvas"
	"chaos-room/internal/game"
	"chaos-room/internal/protocol"
	"chaos-room/internal/room"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

var (
	infoColor   = color.New(color.FgHiCyan)
	chatColor   = color.New(color.FgHiWhite)
	roundColor  = color.New(color.FgHiYellow, color.Bold)
	winnerColor = color.New(color.FgHiGreen, color.Bold)
	leftColor   = color.New(color.FgHiRed)
)

func printf(c *color.Color, format string, args ...any) {
	_, _ = c.Printf(format, args...)
}

var lies = []string{
	"I was teaching pigeons to read at the time.",
	"The cake left on its own. I saw it go.",
	"I have never been in this office. This is my twin.",
}

// strokeBacklog bounds how many pending strokes the queue holds. Other events
// are never dropped.
const strokeBacklog = 64

// eventQueue hands session events to the bot without blocking the session.
type eventQueue struct {
	mu      sync.Mutex
	pending []game.Event
	strokes int
	ready   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{ready: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e game.Event) {
	q.mu.Lock()
	if e.Action.Kind() == protocol.KindDrawStroke {
		if q.strokes >= strokeBacklog {
			q.mu.Unlock()
			return
		}
		q.strokes++
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() []game.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	q.strokes = 0
	return out
}

type bot struct {
	session *game.Session
	wait    int
	started bool
	next    <-chan time.Time
}

func (b *bot) run(ctx context.Context, events *eventQueue, closed <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-closed:
			return errors.New("relay connection closed")
		case <-b.session.Done():
			return nil
		case <-b.next:
			b.next = nil
			b.startRound(ctx)
		case <-events.ready:
			for _, e := range events.drain() {
				b.report(e)
				if b.react(ctx, e) {
					return nil
				}
			}
		}
	}
}

// react answers rounds and, for the host, paces the game. It reports true once
// the game is over.
func (b *bot) react(ctx context.Context, e game.Event) bool {
	view := b.session.Snapshot()
	isHost := e.State.Room.IsHost(b.session.ID())
	switch payload := e.Action.Payload.(type) {
	case protocol.PlayerJoined, protocol.RoomSnapshot:
		if isHost && !b.started && len(e.State.Room.PlayerNames()) >= b.wait {
			b.started = true
			b.next = time.After(roundGap)
		}
	case protocol.StartGame:
		b.answer(ctx, payload.Task, e.State)
	case protocol.FinishRound:
		if view.Phase == game.PhaseGameOver {
			printf(winnerColor, "game over\n")
			return true
		}
		if isHost {
			b.next = time.After(roundGap)
		}
	}
	return false
}

func (b *bot) startRound(ctx context.Context) {
	if err := b.session.StartRound(ctx); err != nil {
		log.Warn().Err(err).Msg("start round")
	}
}

func (b *bot) answer(ctx context.Context, task protocol.Task, state room.State) {
	if task.Type == protocol.TaskDrawing {
		for _, stroke := range scribble(rand.IntN) {
			if err := b.session.Draw(ctx, stroke); err != nil {
				log.Debug().Err(err).Msg("draw")
				return
			}
		}
		return
	}
	text := chooseAnswer(task, state, b.session.ID(), rand.IntN)
	if err := b.session.Submit(ctx, text); err != nil {
		log.Warn().Err(err).Msg("submit")
	}
}

// chooseAnswer picks a plausible answer for a text round. pick returns an
// index in [0,n).
func chooseAnswer(task protocol.Task, state room.State, selfID string, pick func(int) int) string {
	switch task.Type {
	case protocol.TaskVote:
		var names []string
		for _, p := range state.Room.Players {
			if p.ID != selfID && !p.Left {
				names = append(names, p.Name)
			}
		}
		if len(names) == 0 {
			return "nobody"
		}
		return names[pick(len(names))]
	case protocol.TaskFastestFinger:
		if task.CorrectAnswer != nil {
			return *task.CorrectAnswer
		}
		return "42"
	default:
		return lies[pick(len(lies))]
	}
}

func scribble(pick func(int) int) []protocol.DrawStroke {
	strokes := make([]protocol.DrawStroke, 0, 8)
	x, y := float64(pick(canvas.Width)), float64(pick(canvas.Height))
	for i := 0; i < 8; i++ {
		nx, ny := float64(pick(canvas.Width)), float64(pick(canvas.Height))
		strokes = append(strokes, protocol.DrawStroke{PrevX: x, PrevY: y, X: nx, Y: ny, Color: "#ff5ea8", Width: 4})
		x, y = nx, ny
	}
	return strokes
}

func (b *bot) report(e game.Event) {
	switch payload := e.Action.Payload.(type) {
	case protocol.PlayerJoined:
		printf(infoColor, "+ %s joined\n", payload.Player.Name)
	case protocol.PlayerLeft:
		printf(leftColor, "- %s left (%s)\n", e.Action.SenderID, payload.Reason)
	case protocol.ChatMessage:
		printf(chatColor, "%s: %s\n", payload.SenderName, payload.Text)
	case protocol.StartGame:
		printf(roundColor, "round %d [%s] %s: %s (%ds)\n", payload.Round, payload.Task.Type, payload.Task.Title, payload.Task.Description, payload.Task.TimerSeconds)
	case protocol.FinishRound:
		printf(winnerColor, "round %d goes to %s: %s\n", payload.Round, payload.Result.Winner, payload.Result.Reason)
		for _, p := range e.State.Room.Players {
			printf(infoColor, "  %-16s %d\n", p.Name, p.Score)
		}
	}
}
