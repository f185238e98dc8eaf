package server

import (
	"encoding/json"
	"errors"
	"time"

	"chaos-room/internal/db"
	"chaos-room/internal/protocol"

	"github.com/jackc/pgconn"
	pgxconn "github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// archive records the actions worth keeping after a room is gone. Strokes,
// chat and submissions are never archived. A FINISH_ROUND is kept only when
// the relay's replica of the room scores it, so stray or stale frames never
// shadow the host's result.
func (s *Server) archive(action protocol.Action) {
	s.scheduleRoomExpiry(action.RoomCode)
	switch payload := action.Payload.(type) {
	case protocol.FinishRound:
		if !s.track(action) {
			log.Debug().Str("room", action.RoomCode).Str("sender", action.SenderID).Int("round", payload.Round).Msg("ignoring unscored round result")
			return
		}
		result := RoundResult{
			Round:    payload.Round,
			HostID:   action.SenderID,
			Winner:   payload.Result.Winner,
			WinnerID: payload.Result.WinnerID,
			Reason:   payload.Result.Reason,
			At:       time.Now().UTC(),
		}
		if !s.store.RecordResult(action.RoomCode, result) {
			return
		}
		if err := s.persistResult(action.RoomCode, result); err != nil {
			log.Warn().Err(err).Str("room", action.RoomCode).Int("round", payload.Round).Msg("persist round result")
		}
	case protocol.PlayerJoined, protocol.PlayerLeft, protocol.StartGame:
		s.track(action)
	case protocol.RoomSnapshot:
		s.track(action)
		return
	default:
		return
	}
	if err := s.persistEvent(action); err != nil {
		log.Warn().Err(err).Str("room", action.RoomCode).Str("kind", string(action.Kind())).Msg("persist event")
	}
}

func (s *Server) persistRoom(room RoomRecord) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{Code: room.Code, MaxRounds: room.MaxRounds}
	if record.MaxRounds <= 0 {
		record.MaxRounds = s.cfg.MaxRounds
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

func (s *Server) ensureRoomDBID(code string) (uint, error) {
	var record db.Room
	err := s.db.Where("code = ?", code).First(&record).Error
	if err == nil {
		return record.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if err := s.persistRoom(RoomRecord{Code: code}); err != nil {
		return 0, err
	}
	if err := s.db.Where("code = ?", code).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func (s *Server) persistResult(code string, result RoundResult) error {
	if s.db == nil {
		return nil
	}
	roomID, err := s.ensureRoomDBID(code)
	if err != nil {
		return err
	}
	record := db.RoundResult{
		RoomID:   roomID,
		Round:    result.Round,
		HostID:   result.HostID,
		Winner:   result.Winner,
		WinnerID: result.WinnerID,
		Reason:   result.Reason,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) persistEvent(action protocol.Action) error {
	if s.db == nil {
		return nil
	}
	roomID, err := s.ensureRoomDBID(action.RoomCode)
	if err != nil {
		return err
	}
	data, err := json.Marshal(action.Payload)
	if err != nil {
		return err
	}
	event := db.Event{
		RoomID:   roomID,
		SenderID: action.SenderID,
		Type:     string(action.Kind()),
		Payload:  datatypes.JSON(data),
	}
	return s.db.Create(&event).Error
}

// loadResults prefers the database and falls back to memory.
func (s *Server) loadResults(code string) ([]RoundResult, error) {
	if s.db == nil {
		room, ok := s.store.GetRoom(code)
		if !ok {
			return []RoundResult{}, nil
		}
		return room.Results, nil
	}
	var records []db.RoundResult
	err := s.db.
		Joins("JOIN rooms ON rooms.id = round_results.room_id").
		Where("rooms.code = ?", code).
		Order("round_results.round ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	results := make([]RoundResult, 0, len(records))
	for _, record := range records {
		results = append(results, RoundResult{
			Round:    record.Round,
			HostID:   record.HostID,
			Winner:   record.Winner,
			WinnerID: record.WinnerID,
			Reason:   record.Reason,
			At:       record.CreatedAt,
		})
	}
	return results, nil
}

// isUniqueViolation understands errors from both the pgx v5 driver gorm uses
// and the older pgconn package.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pgxErr *pgxconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == "23505"
	}
	return false
}
