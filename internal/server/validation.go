package server

import (
	"regexp"
	"sync"

	"chaos-room/internal/protocol"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxRoundsPerRoom = 20
	maxChannelLength = 64
)

var (
	validatorOnce  sync.Once
	channelPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)
)

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			return protocol.ValidRoomCode(fl.Field().String())
		})
		_ = engine.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
			return validChannel(fl.Field().String())
		})
	})
}

func validChannel(name string) bool {
	return len(name) <= maxChannelLength && channelPattern.MatchString(name)
}

type roomURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

type channelURI struct {
	Channel string `uri:"channel" binding:"required,channel"`
}

type relayQuery struct {
	PlayerID string `form:"player_id" binding:"omitempty,max=64"`
}

type createRoomRequest struct {
	MaxRounds int `json:"max_rounds" binding:"omitempty,gte=1,lte=20"`
}
