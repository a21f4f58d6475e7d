package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Player struct {
	ID            string                             `json:"id" gorm:"primaryKey;size:36"`
	RoomCode      string                             `json:"roomCode" gorm:"size:6;not null;index"`
	Name          string                             `json:"name" gorm:"size:64;not null"`
	NameKey       string                             `json:"-" gorm:"size:64;index"`
	Avatar        string                             `json:"avatar" gorm:"size:64"`
	IsHost        bool                               `json:"isHost" gorm:"not null;default:false"`
	Score         int                                `json:"score" gorm:"not null;default:0"`
	CurrentAnswer *int                               `json:"currentAnswer"`
	Answers       datatypes.JSONType[[]AnswerRecord] `json:"answers"`
	JoinedAt      time.Time                          `json:"joinedAt"`
	CreatedAt     time.Time                          `json:"createdAt"`
	UpdatedAt     time.Time                          `json:"updatedAt"`
}

// FoldKey is the case-folded form names and categories are matched on.
// It is computed in Go so every store compares the same bytes.
func FoldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (p *Player) BeforeCreate(*gorm.DB) error {
	p.NameKey = FoldKey(p.Name)
	return nil
}

// AnswerFor returns the player's answer record for a question index, if any.
func (p *Player) AnswerFor(questionIndex int) (AnswerRecord, bool) {
	for _, a := range p.Answers.Data() {
		if a.QuestionIndex == questionIndex {
			return a, true
		}
	}
	return AnswerRecord{}, false
}
