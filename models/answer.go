package models

// AnswerRecord is one entry of a player's answer history. Records are appended, never edited.
type AnswerRecord struct {
	QuestionIndex int   `json:"questionIndex"`
	Answer        int   `json:"answer"`
	TimeMs        int64 `json:"timeMs"`
	Correct       bool  `json:"correct"`
	Score         int   `json:"score"`
}
