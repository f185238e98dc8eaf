package protocol

// Status is the coarse room phase replicated by every participant.
type Status string

const (
	StatusLobby   Status = "LOBBY"
	StatusPlaying Status = "PLAYING"
)

// TaskType names the mini-game a round is played as.
type TaskType string

const (
	TaskDrawing       TaskType = "DRAWING"
	TaskFastestFinger TaskType = "FASTEST_FINGER"
	TaskLieDetector   TaskType = "LIE_DETECTOR"
	TaskVote          TaskType = "VOTE"
)

// TaskTypes lists every mode in a stable order.
var TaskTypes = []TaskType{TaskDrawing, TaskFastestFinger, TaskLieDetector, TaskVote}

func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Player struct {
	ID      string `json:"id" validate:"required,max=64"`
	Name    string `json:"name" validate:"required,max=32"`
	Avatar  string `json:"avatar,omitempty" validate:"max=32"`
	Color   string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Score   int    `json:"score" validate:"min=0"`
	IsHost  bool   `json:"is_host"`
	IsReady bool   `json:"is_ready"`
	Left    bool   `json:"left,omitempty"`
}

// Task is one round's challenge. Tasks are immutable once broadcast; use Clone
// before handing one to code that may modify it.
type Task struct {
	ID            string   `json:"id" validate:"required,max=64"`
	Type          TaskType `json:"type" validate:"required,oneof=DRAWING FASTEST_FINGER LIE_DETECTOR VOTE"`
	Title         string   `json:"title" validate:"max=140"`
	Description   string   `json:"description" validate:"required,max=500"`
	TimerSeconds  int      `json:"timer" validate:"gt=0,lte=600"`
	CorrectAnswer *string  `json:"correctAnswer,omitempty"`
	Options       []string `json:"options,omitempty" validate:"max=16,dive,max=140"`
}

func (t Task) Clone() Task {
	out := t
	if t.CorrectAnswer != nil {
		answer := *t.CorrectAnswer
		out.CorrectAnswer = &answer
	}
	if t.Options != nil {
		out.Options = append([]string(nil), t.Options...)
	}
	return out
}

// WinnerInfo is the judge's verdict for a round. WinnerID is optional; when it
// is empty receivers fall back to matching Winner against player names.
type WinnerInfo struct {
	Winner   string `json:"winner" validate:"required,max=64"`
	WinnerID string `json:"winner_id,omitempty" validate:"max=64"`
	Reason   string `json:"reason" validate:"max=500"`
}
