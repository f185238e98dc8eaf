package server

import (
	"time"

	"github.com/rs/zerolog/log"
)

// scheduleRoomExpiry forgets a room from memory once nobody has touched it for
// the configured idle time. Archived results in the database are kept.
func (s *Server) scheduleRoomExpiry(code string) {
	duration := time.Duration(s.cfg.RoomIdleMinutes) * time.Minute
	if duration <= 0 {
		return
	}
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.timers[code]; ok {
		existing.Stop()
	}
	s.timers[code] = time.AfterFunc(duration, func() {
		s.expireRoom(code)
	})
}

// Close stops every pending expiry timer.
func (s *Server) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for code, timer := range s.timers {
		timer.Stop()
		delete(s.timers, code)
	}
}

func (s *Server) expireRoom(code string) {
	s.timersMu.Lock()
	delete(s.timers, code)
	s.timersMu.Unlock()
	s.forgetReplica(code)
	if s.store.DeleteRoom(code) {
		log.Info().Str("room", code).Msg("room expired")
	}
}
