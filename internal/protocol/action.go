package protocol

// Kind identifies the payload carried by an Action.
type Kind string

const (
	KindPlayerJoined Kind = "PLAYER_JOINED"
	KindPlayerLeft   Kind = "PLAYER_LEFT"
	KindReadyToggle  Kind = "READY_TOGGLE"
	KindStartGame    Kind = "START_GAME"
	KindSubmitAnswer Kind = "SUBMIT_ANSWER"
	KindChatMessage  Kind = "CHAT_MESSAGE"
	KindDrawStroke   Kind = "DRAW_STROKE"
	KindFinishRound  Kind = "FINISH_ROUND"
	KindRoomSnapshot Kind = "ROOM_SNAPSHOT"
)

// Payload is implemented by exactly one struct per Kind.
type Payload interface {
	Kind() Kind
}

// Action is the envelope every participant broadcasts. The kind is derived
// from the payload so the two can never disagree.
type Action struct {
	SenderID string
	RoomCode string
	Payload  Payload
}

func (a Action) Kind() Kind {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.Kind()
}

func New(roomCode, senderID string, payload Payload) Action {
	return Action{SenderID: senderID, RoomCode: roomCode, Payload: payload}
}

type PlayerJoined struct {
	Player Player `json:"player"`
}

type PlayerLeft struct {
	Reason string `json:"reason,omitempty" validate:"max=64"`
}

type ReadyToggle struct{}

type StartGame struct {
	Task  Task `json:"task"`
	Round int  `json:"round" validate:"gt=0"`
}

type SubmitAnswer struct {
	PlayerName string `json:"playerName" validate:"required,max=32"`
	Text       string `json:"text,omitempty" validate:"max=500"`
	Drawing    []byte `json:"drawing,omitempty" validate:"max=262144"`
	Round      int    `json:"round" validate:"gt=0"`
}

type ChatMessage struct {
	SenderName string `json:"senderName" validate:"required,max=32"`
	Text       string `json:"text" validate:"required,max=280"`
}

// DrawStroke is one line segment of the shared canvas.
type DrawStroke struct {
	PrevX float64 `json:"prevX"`
	PrevY float64 `json:"prevY"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color" validate:"required,hexcolor"`
	Width float64 `json:"width,omitempty" validate:"gte=0,lte=64"`
}

type FinishRound struct {
	Round  int        `json:"round" validate:"gt=0"`
	Result WinnerInfo `json:"winnerInfo"`
}

// RoomSnapshot lets the host re-announce the room to participants that joined
// after others and therefore never saw their PLAYER_JOINED actions.
type RoomSnapshot struct {
	Players       []Player `json:"players" validate:"min=1,max=32,dive"`
	Status        Status   `json:"status" validate:"oneof=LOBBY PLAYING"`
	Round         int      `json:"round" validate:"gte=0"`
	ResolvedRound int      `json:"resolvedRound" validate:"gte=0,ltefield=Round"`
	MaxRounds     int      `json:"maxRounds" validate:"gt=0"`
	Task          *Task    `json:"task,omitempty"`
}

func (PlayerJoined) Kind() Kind { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind   { return KindPlayerLeft }
func (ReadyToggle) Kind() Kind  { return KindReadyToggle }
func (StartGame) Kind() Kind    { return KindStartGame }
func (SubmitAnswer) Kind() Kind { return KindSubmitAnswer }
func (ChatMessage) Kind() Kind  { return KindChatMessage }
func (DrawStroke) Kind() Kind   { return KindDrawStroke }
func (FinishRound) Kind() Kind  { return KindFinishRound }
func (RoomSnapshot) Kind() Kind { return KindRoomSnapshot }
