package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

const RoomCodeLength = 5

var (
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrMissingSender   = errors.New("action has no sender")
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{5}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			return ValidRoomCode(fl.Field().String())
		})
	})
	return validate
}

// Validator exposes the shared instance so HTTP binding can reuse the custom tags.
func Validator() *validator.Validate {
	return validatorInstance()
}

func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// Validate checks the envelope and the payload's struct tags. It does not look
// at room state; the reducer decides whether a well-formed action applies.
func Validate(a Action) error {
	if a.Payload == nil {
		return ErrNoPayload
	}
	if !ValidRoomCode(a.RoomCode) {
		return fmt.Errorf("%w: %q", ErrInvalidRoomCode, a.RoomCode)
	}
	if a.SenderID == "" {
		return ErrMissingSender
	}
	if err := validatorInstance().Struct(a.Payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", a.Kind(), err)
	}
	return nil
}
