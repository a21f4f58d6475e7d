package models

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by store implementations when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStaleWrite is returned when a conditional write matched no rows.
	ErrStaleWrite = errors.New("conditional write matched no rows")
)

const (
	RoomStatusWaiting  = "waiting"
	RoomStatusActive   = "active"
	RoomStatusFinished = "finished"
)

type Room struct {
	Code                 string     `json:"code" gorm:"primaryKey;size:6"`
	Status               string     `json:"status" gorm:"size:16;not null;default:'waiting'"` // waiting, active, finished
	MaxPlayers           int        `json:"maxPlayers" gorm:"not null"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex" gorm:"not null;default:0"`
	TotalQuestions       int        `json:"totalQuestions" gorm:"not null"`
	QuestionStartTime    *time.Time `json:"questionStartTime"`
	TimeLimitSeconds     int        `json:"timeLimit" gorm:"not null"`
	Category             string     `json:"category" gorm:"size:32"`
	GameMode             string     `json:"gameMode" gorm:"size:32;not null"`
	CreatedAt            time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (r *Room) TimeLimitMs() int64 {
	return int64(r.TimeLimitSeconds) * 1000
}
