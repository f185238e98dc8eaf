package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:5;uniqueIndex;not null"`
	MaxRounds int       `gorm:"not null;default:5"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Results   []RoundResult
	Events    []Event
}

// RoundResult is one FINISH_ROUND as seen by the relay. A round is archived
// at most once per room.
type RoundResult struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null;uniqueIndex:idx_round_results_room_round"`
	Round     int       `gorm:"not null;uniqueIndex:idx_round_results_room_round"`
	HostID    string    `gorm:"size:64;not null"`
	Winner    string    `gorm:"size:64;not null"`
	WinnerID  string    `gorm:"size:64"`
	Reason    string    `gorm:"size:500"`
	CreatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    uint           `gorm:"index;not null"`
	SenderID  string         `gorm:"size:64"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
