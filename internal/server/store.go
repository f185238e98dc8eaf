package server

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrRoomCodesExhausted = errors.New("could not allocate a free room code")

type RoomRecord struct {
	Code      string
	MaxRounds int
	CreatedAt time.Time
	Results   []RoundResult
}

type RoundResult struct {
	Round    int       `json:"round"`
	HostID   string    `json:"host_id"`
	Winner   string    `json:"winner"`
	WinnerID string    `json:"winner_id,omitempty"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Store keeps the rooms the relay knows about. Live room state stays with the
// participants; the store only remembers codes and finished rounds.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*RoomRecord
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*RoomRecord)}
}

func (s *Store) CreateRoom(maxRounds int) (RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 16; attempt++ {
		code := newRoomCode()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		room := &RoomRecord{Code: code, MaxRounds: maxRounds, CreatedAt: time.Now().UTC()}
		s.rooms[code] = room
		return *room, nil
	}
	return RoomRecord{}, ErrRoomCodesExhausted
}

func (s *Store) GetRoom(code string) (RoomRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return RoomRecord{}, false
	}
	out := *room
	out.Results = append([]RoundResult(nil), room.Results...)
	return out, true
}

// RecordResult stores a finished round. It reports false when the round was
// already recorded for the room.
func (s *Store) RecordResult(code string, result RoundResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		room = &RoomRecord{Code: code, CreatedAt: time.Now().UTC()}
		s.rooms[code] = room
	}
	for _, existing := range room.Results {
		if existing.Round == result.Round {
			return false
		}
	}
	room.Results = append(room.Results, result)
	sort.Slice(room.Results, func(i, j int) bool { return room.Results[i].Round < room.Results[j].Round })
	return true
}

func (s *Store) DeleteRoom(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return false
	}
	delete(s.rooms, code)
	return true
}
