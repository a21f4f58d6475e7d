package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is a question bank entry. Games copy a selection of these into GameQuestion rows.
type Question struct {
	ID                 uint                         `json:"id" gorm:"primaryKey"`
	Text               string                       `json:"text" gorm:"not null"`
	Options            datatypes.JSONType[[]string] `json:"options" gorm:"not null"`
	CorrectAnswerIndex int                          `json:"correctAnswer" gorm:"not null"`
	Category           string                       `json:"category" gorm:"size:32"`
	CategoryKey        string                       `json:"-" gorm:"size:32;index"`
	Difficulty         string                       `json:"difficulty" gorm:"size:16"`
	CreatedAt          time.Time                    `json:"createdAt"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt               `json:"-" gorm:"index"`
}

func (q *Question) BeforeCreate(*gorm.DB) error {
	q.CategoryKey = FoldKey(q.Category)
	return nil
}

type GameQuestion struct {
	RoomCode           string                       `json:"roomCode" gorm:"primaryKey;size:6"`
	QuestionIndex      int                          `json:"questionIndex" gorm:"primaryKey;autoIncrement:false"`
	QuestionText       string                       `json:"questionText" gorm:"not null"`
	Options            datatypes.JSONType[[]string] `json:"options" gorm:"not null"`
	CorrectAnswerIndex int                          `json:"-" gorm:"not null"`
	Category           string                       `json:"category" gorm:"size:32"`
	Difficulty         string                       `json:"difficulty" gorm:"size:16"`
	CreatedAt          time.Time                    `json:"createdAt"`
}
