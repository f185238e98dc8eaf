package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind = errors.New("unknown action kind")
	ErrNoPayload   = errors.New("action has no payload")
)

type wireAction struct {
	Type     Kind            `json:"type"`
	SenderID string          `json:"sender_id"`
	RoomCode string          `json:"room_code"`
	Payload  json.RawMessage `json:"payload"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.Payload == nil {
		return nil, ErrNoPayload
	}
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", a.Kind(), err)
	}
	return json.Marshal(wireAction{
		Type:     a.Kind(),
		SenderID: a.SenderID,
		RoomCode: a.RoomCode,
		Payload:  payload,
	})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var wire wireAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	payload, err := newPayload(wire.Type)
	if err != nil {
		return err
	}
	if len(wire.Payload) > 0 && string(wire.Payload) != "null" {
		if err := json.Unmarshal(wire.Payload, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", wire.Type, err)
		}
	}
	a.SenderID = wire.SenderID
	a.RoomCode = wire.RoomCode
	a.Payload = deref(payload)
	return nil
}

// Encode serializes an action into its JSON envelope.
func Encode(a Action) ([]byte, error) {
	return json.Marshal(a)
}

// Decode parses a JSON envelope and validates the payload.
func Decode(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, err
	}
	if err := Validate(a); err != nil {
		return Action{}, err
	}
	return a, nil
}

func newPayload(kind Kind) (any, error) {
	switch kind {
	case KindPlayerJoined:
		return &PlayerJoined{}, nil
	case KindPlayerLeft:
		return &PlayerLeft{}, nil
	case KindReadyToggle:
		return &ReadyToggle{}, nil
	case KindStartGame:
		return &StartGame{}, nil
	case KindSubmitAnswer:
		return &SubmitAnswer{}, nil
	case KindChatMessage:
		return &ChatMessage{}, nil
	case KindDrawStroke:
		return &DrawStroke{}, nil
	case KindFinishRound:
		return &FinishRound{}, nil
	case KindRoomSnapshot:
		return &RoomSnapshot{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// deref stores payloads by value so reducers can switch on concrete types.
func deref(payload any) Payload {
	switch p := payload.(type) {
	case *PlayerJoined:
		return *p
	case *PlayerLeft:
		return *p
	case *ReadyToggle:
		return *p
	case *StartGame:
		return *p
	case *SubmitAnswer:
		return *p
	case *ChatMessage:
		return *p
	case *DrawStroke:
		return *p
	case *FinishRound:
		return *p
	case *RoomSnapshot:
		return *p
	default:
		return nil
	}
}
