package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chaos-room/internal/canvas"
	"chaos-room/internal/content"
	"chaos-room/internal/protocol"
	"chaos-room/internal/room"
	"chaos-room/internal/transport"

	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNotHost       = errors.New("only the host can do that")
	ErrBusy          = errors.New("a round is already in progress")
	ErrGameOver      = errors.New("game over")
	ErrRoundClosed   = errors.New("no round is accepting submissions")
)

const (
	inboxSize          = 256
	maxSnapshotPlayers = 32
)

type Config struct {
	RoomCode  string
	Self      protocol.Player
	MaxRounds int
	Transport transport.Transport
	Generator content.TaskGenerator
	Judge     content.Judge
	// NewTicker defaults to NewRealTicker.
	NewTicker TickerFunc
	// OnEvent is called from the session goroutine after every applied action.
	// It must not call back into the session synchronously.
	OnEvent func(Event)
}

// Event describes one applied action and the effects it produced.
type Event struct {
	Action  protocol.Action
	Effects []room.Effect
	State   room.State
}

// View is a copy of the session's state safe to read from any goroutine.
type View struct {
	State     room.State
	Phase     Phase
	Remaining int
	Result    *room.ShowResults
	// Submitted reports whether the local player answered the current round.
	Submitted bool
}

// Session is one participant. A single goroutine owns the replica, the
// countdown and the controller; everything else talks to it via the inbox.
type Session struct {
	cfg    Config
	self   protocol.Player
	inbox  chan message
	sub    *transport.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// owned by the loop
	state     room.State
	canvas    *canvas.Canvas
	ticker    Ticker
	remaining int
	phase     Phase
	result    *room.ShowResults
	submitted bool
	ctrl      *Controller

	final View
}

type message interface{}

type remoteAction struct {
	action protocol.Action
}

// localAction builds a payload from the current state and dispatches it.
type localAction struct {
	build func(room.State) (protocol.Payload, error)
	reply chan error
}

type viewRequest struct {
	reply chan View
}

type startRequest struct {
	reply chan error
}

type taskGenerated struct {
	round int
	task  protocol.Task
}

type verdictReady struct {
	round   int
	verdict protocol.WinnerInfo
}

// Open starts a session, subscribes it to the transport and announces the
// local player.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if !protocol.ValidRoomCode(cfg.RoomCode) {
		return nil, fmt.Errorf("%w: %q", protocol.ErrInvalidRoomCode, cfg.RoomCode)
	}
	if err := protocol.Validator().Struct(cfg.Self); err != nil {
		return nil, fmt.Errorf("invalid player: %w", err)
	}
	if cfg.Transport == nil {
		return nil, errors.New("session needs a transport")
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		cfg:    cfg,
		self:   cfg.Self,
		inbox:  make(chan message, inboxSize),
		ctx:    loopCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  room.NewState(cfg.RoomCode, cfg.MaxRounds, cfg.Self),
		canvas: canvas.New(),
		phase:  PhaseIdle,
	}
	s.ctrl = newController(s, cfg.Generator, cfg.Judge)
	s.sub = cfg.Transport.Subscribe(func(action protocol.Action) {
		s.post(remoteAction{action: action})
	})
	go s.run()

	if err := s.Dispatch(ctx, protocol.PlayerJoined{Player: s.state.Room.Players[0]}); err != nil {
		s.Close()
		return nil, fmt.Errorf("announce player: %w", err)
	}
	log.Info().Str("room", cfg.RoomCode).Str("player", cfg.Self.ID).Bool("host", cfg.Self.IsHost).Msg("session opened")
	return s, nil
}

func (s *Session) ID() string { return s.self.ID }

func (s *Session) Canvas() *canvas.Canvas { return s.canvas }

// Dispatch applies a local action to the replica and broadcasts it.
func (s *Session) Dispatch(ctx context.Context, payload protocol.Payload) error {
	return s.dispatchWith(ctx, func(room.State) (protocol.Payload, error) { return payload, nil })
}

func (s *Session) ToggleReady(ctx context.Context) error {
	return s.Dispatch(ctx, protocol.ReadyToggle{})
}

func (s *Session) Chat(ctx context.Context, text string) error {
	return s.Dispatch(ctx, protocol.ChatMessage{SenderName: s.self.Name, Text: text})
}

// Submit answers the current round. For VOTE rounds text is the name voted for.
func (s *Session) Submit(ctx context.Context, text string) error {
	return s.dispatchWith(ctx, func(state room.State) (protocol.Payload, error) {
		if !state.RoundOpen() {
			return nil, ErrRoundClosed
		}
		return protocol.SubmitAnswer{PlayerName: s.self.Name, Text: text, Round: state.Room.Round}, nil
	})
}

// Draw paints a stroke locally and relays it to everyone else.
func (s *Session) Draw(ctx context.Context, stroke protocol.DrawStroke) error {
	return s.Dispatch(ctx, stroke)
}

// Leave announces departure and closes the session.
func (s *Session) Leave(ctx context.Context, reason string) error {
	err := s.Dispatch(ctx, protocol.PlayerLeft{Reason: reason})
	s.Close()
	return err
}

// StartRound asks the controller to generate and start the next round. Only
// the host may call it.
func (s *Session) StartRound(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, startRequest{reply: reply}); err != nil {
		return err
	}
	return s.await(ctx, reply)
}

// Snapshot returns a copy of the session's current view. After Close it
// returns the last view.
func (s *Session) Snapshot() View {
	reply := make(chan View, 1)
	select {
	case s.inbox <- viewRequest{reply: reply}:
	case <-s.done:
		return s.final
	}
	select {
	case view := <-reply:
		return view
	case <-s.done:
		return s.final
	}
}

// Close stops the loop, the countdown and the transport subscription. It is
// safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.cfg.Transport.Close(s.sub)
	})
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) dispatchWith(ctx context.Context, build func(room.State) (protocol.Payload, error)) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, localAction{build: build, reply: reply}); err != nil {
		return err
	}
	return s.await(ctx, reply)
}

func (s *Session) send(ctx context.Context, msg message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by goroutines the session owns; it gives up once the session
// is closing.
func (s *Session) post(msg message) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	defer func() {
		s.stopCountdown()
		s.final = s.view()
		close(s.done)
	}()
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C()
		}
		select {
		case <-s.ctx.Done():
			return
		case <-tick:
			s.onTick()
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

func (s *Session) handle(msg message) {
	switch m := msg.(type) {
	case remoteAction:
		s.apply(m.action)
	case localAction:
		m.reply <- s.dispatchLocal(m.build)
	case viewRequest:
		m.reply <- s.view()
	case startRequest:
		m.reply <- s.ctrl.startRound()
	case taskGenerated:
		s.ctrl.onTaskGenerated(m.round, m.task)
	case verdictReady:
		s.ctrl.onVerdict(m.round, m.verdict)
	}
}

func (s *Session) dispatchLocal(build func(room.State) (protocol.Payload, error)) error {
	payload, err := build(s.state)
	if err != nil {
		return err
	}
	action := protocol.New(s.state.Room.Code, s.self.ID, payload)
	if err := protocol.Validate(action); err != nil {
		return err
	}
	if stroke, ok := payload.(protocol.DrawStroke); ok {
		if err := s.canvas.Draw(toCanvasStroke(stroke)); err != nil {
			return err
		}
	}
	s.apply(action)
	if _, ok := payload.(protocol.SubmitAnswer); ok {
		s.submitted = true
	}
	if err := s.cfg.Transport.Broadcast(action); err != nil {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Str("kind", string(action.Kind())).Msg("broadcast failed")
		return fmt.Errorf("broadcast %s: %w", action.Kind(), err)
	}
	return nil
}

func (s *Session) apply(action protocol.Action) {
	next, effects := room.Reduce(s.state, s.self.ID, action)
	s.state = next
	for _, effect := range effects {
		s.runEffect(effect)
	}
	if s.cfg.OnEvent != nil {
		s.cfg.OnEvent(Event{Action: action, Effects: effects, State: s.state.Clone()})
	}
}

func (s *Session) runEffect(effect room.Effect) {
	switch e := effect.(type) {
	case room.ResetTimer:
		s.startCountdown(e.Seconds)
		s.phase = PhaseCountdown
		s.result = nil
	case room.ResetRoundInputs:
		s.submitted = false
	case room.ClearCanvas:
		s.canvas.Clear()
	case room.RenderStroke:
		if err := s.canvas.Draw(toCanvasStroke(e.Stroke)); err != nil {
			log.Debug().Err(err).Str("sender", e.SenderID).Msg("stroke dropped")
		}
	case room.JoinObserved:
		if e.Player.ID != s.self.ID && s.isHost() {
			s.announce()
		}
	case room.ShowResults:
		s.stopCountdown()
		s.remaining = 0
		result := e
		s.result = &result
		s.phase = PhaseResultsShown
		if e.GameOver {
			s.phase = PhaseGameOver
		}
		log.Info().Str("room", s.state.Room.Code).Int("round", e.Round).Str("winner", e.Result.Winner).Bool("game_over", e.GameOver).Msg("round resolved")
	case room.HostChanged:
		if e.HostID == s.self.ID {
			log.Info().Str("room", s.state.Room.Code).Str("previous", e.PreviousID).Msg("host role taken over")
			s.ctrl.onPromoted()
		}
	case room.PlayerDeparted:
		log.Info().Str("room", s.state.Room.Code).Str("player", e.PlayerID).Msg("player left")
	}
}

// announce re-broadcasts the host's view of the room so late joiners learn
// about everyone who joined before them.
func (s *Session) announce() {
	snapshot := protocol.RoomSnapshot{
		Players:       snapshotPlayers(s.state.Room.Players),
		Status:        s.state.Room.Status,
		Round:         s.state.Room.Round,
		ResolvedRound: s.state.ResolvedRound,
		MaxRounds:     s.state.Room.MaxRounds,
	}
	if s.state.Room.CurrentTask != nil {
		task := s.state.Room.CurrentTask.Clone()
		snapshot.Task = &task
	}
	action := protocol.New(s.state.Room.Code, s.self.ID, snapshot)
	if err := protocol.Validate(action); err != nil {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Msg("room snapshot invalid")
		return
	}
	if err := s.cfg.Transport.Broadcast(action); err != nil {
		log.Warn().Err(err).Str("room", s.state.Room.Code).Msg("room snapshot not sent")
	}
}

// snapshotPlayers drops the earliest departed players until the list fits in
// a snapshot. Present players are always kept.
func snapshotPlayers(players []protocol.Player) []protocol.Player {
	out := append([]protocol.Player(nil), players...)
	for i := 0; len(out) > maxSnapshotPlayers && i < len(out); {
		if out[i].Left {
			out = append(out[:i], out[i+1:]...)
			continue
		}
		i++
	}
	return out
}

func (s *Session) startCountdown(seconds int) {
	s.stopCountdown()
	s.remaining = seconds
	s.ticker = s.cfg.NewTicker(time.Second)
}

// stopCountdown releases the ticker. The ticker is dropped after Stop so it is
// never stopped twice.
func (s *Session) stopCountdown() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
}

func (s *Session) onTick() {
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return
	}
	s.stopCountdown()
	s.ctrl.onCountdownExpired()
}

func (s *Session) isHost() bool {
	return s.state.Room.IsHost(s.self.ID)
}

func (s *Session) view() View {
	view := View{
		State:     s.state.Clone(),
		Phase:     s.phase,
		Remaining: s.remaining,
		Submitted: s.submitted,
	}
	if s.result != nil {
		result := *s.result
		view.Result = &result
	}
	return view
}

func toCanvasStroke(stroke protocol.DrawStroke) canvas.Stroke {
	return canvas.Stroke{
		PrevX: stroke.PrevX,
		PrevY: stroke.PrevY,
		X:     stroke.X,
		Y:     stroke.Y,
		Color: stroke.Color,
		Width: stroke.Width,
	}
}
