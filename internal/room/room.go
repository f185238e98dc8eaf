package room

import "chaos-room/internal/protocol"

const (
	// MaxPlayers bounds a room's participant set.
	MaxPlayers = 8
	// RoundScore is added to the winner of each round.
	RoundScore = 10
	// DefaultMaxRounds is used when a room is created without an explicit limit.
	DefaultMaxRounds = 5
)

type Room struct {
	Code        string
	Players     []protocol.Player
	Status      protocol.Status
	CurrentTask *protocol.Task
	Round       int
	MaxRounds   int
}

type Submission struct {
	PlayerID   string
	PlayerName string
	Round      int
	Text       string
	Drawing    []byte
}

type ChatMessage struct {
	SenderName string
	Text       string
}

// State is one participant's replica. Room is the converging core; the other
// fields are local views fed by the same action stream.
type State struct {
	Room        Room
	Submissions []Submission
	Chat        []ChatMessage
	// ResolvedRound is the highest round whose FINISH_ROUND was applied. It is
	// the guard that keeps scoring exactly-once per round.
	ResolvedRound int
}

// NewState builds the replica a participant starts from: a lobby that only
// knows the local player.
func NewState(code string, maxRounds int, self protocol.Player) State {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	self.Score = 0
	self.Left = false
	return State{
		Room: Room{
			Code:      code,
			Players:   []protocol.Player{self},
			Status:    protocol.StatusLobby,
			MaxRounds: maxRounds,
		},
	}
}

func (r Room) Host() (protocol.Player, bool) {
	for _, player := range r.Players {
		if player.IsHost {
			return player, true
		}
	}
	return protocol.Player{}, false
}

func (r Room) Player(id string) (protocol.Player, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.Players[i], true
	}
	return protocol.Player{}, false
}

func (r Room) PlayerNames() []string {
	names := make([]string, 0, len(r.Players))
	for _, player := range r.Players {
		if player.Left {
			continue
		}
		names = append(names, player.Name)
	}
	return names
}

func (r Room) IsHost(id string) bool {
	host, ok := r.Host()
	return ok && host.ID == id
}

// Finished reports whether the last round has been played and resolved.
func (s State) Finished() bool {
	return s.Room.Round >= s.Room.MaxRounds && s.ResolvedRound >= s.Room.Round
}

// RoundOpen reports whether submissions for the current round are accepted.
func (s State) RoundOpen() bool {
	return s.Room.Status == protocol.StatusPlaying && s.Room.Round > s.ResolvedRound
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s State) Clone() State {
	out := s
	out.Room.Players = append([]protocol.Player(nil), s.Room.Players...)
	if s.Room.CurrentTask != nil {
		task := s.Room.CurrentTask.Clone()
		out.Room.CurrentTask = &task
	}
	if s.Submissions != nil {
		out.Submissions = make([]Submission, len(s.Submissions))
		for i, sub := range s.Submissions {
			sub.Drawing = append([]byte(nil), sub.Drawing...)
			out.Submissions[i] = sub
		}
	}
	out.Chat = append([]ChatMessage(nil), s.Chat...)
	return out
}

func (r Room) indexOf(id string) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// presentCount counts the players not marked as left; the player cap applies
// to them only.
func (r Room) presentCount() int {
	n := 0
	for _, player := range r.Players {
		if !player.Left {
			n++
		}
	}
	return n
}

// activeSender reports whether id belongs to a player still in the room.
func (r Room) activeSender(id string) bool {
	i := r.indexOf(id)
	return i >= 0 && !r.Players[i].Left
}

func clonePlayers(players []protocol.Player) []protocol.Player {
	return append([]protocol.Player(nil), players...)
}
