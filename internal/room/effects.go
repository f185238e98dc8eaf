package room

import "chaos-room/internal/protocol"

// Effect is a side effect the caller must perform after a transition. The
// reducer never performs them itself.
type Effect interface {
	effect()
}

// ResetTimer restarts the local countdown at the task's timer value.
type ResetTimer struct {
	Seconds int
}

// ResetRoundInputs clears per-round input state such as a cast vote.
type ResetRoundInputs struct {
	Round int
}

type ClearCanvas struct{}

// RenderStroke paints a stroke that originated on another participant.
type RenderStroke struct {
	SenderID string
	Stroke   protocol.DrawStroke
}

type SubmissionReceived struct {
	Submission Submission
}

type ChatAppended struct {
	Message ChatMessage
}

// JoinObserved is emitted for every well-formed join, duplicate or not, so the
// host can re-announce the room to a reconnecting participant.
type JoinObserved struct {
	Player protocol.Player
	New    bool
}

type ShowResults struct {
	Round    int
	Result   protocol.WinnerInfo
	WinnerID string
	GameOver bool
}

type HostChanged struct {
	PreviousID string
	HostID     string
}

type PlayerDeparted struct {
	PlayerID string
}

func (ResetTimer) effect()         {}
func (ResetRoundInputs) effect()   {}
func (ClearCanvas) effect()        {}
func (RenderStroke) effect()       {}
func (SubmissionReceived) effect() {}
func (ChatAppended) effect()       {}
func (JoinObserved) effect()       {}
func (ShowResults) effect()        {}
func (HostChanged) effect()        {}
func (PlayerDeparted) effect()     {}
