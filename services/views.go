package services

import (
	"time"

	"triviaroom/models"
)

// QuestionView is a game question as players see it. The correct answer is never included.
type QuestionView struct {
	Index      int      `json:"index"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
}

type PlayerView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar"`
	IsHost      bool      `json:"isHost"`
	Score       int       `json:"score"`
	HasAnswered bool      `json:"hasAnswered"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type RoomSnapshot struct {
	Code                 string        `json:"code"`
	Status               string        `json:"status"`
	MaxPlayers           int           `json:"maxPlayers"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	TotalQuestions       int           `json:"totalQuestions"`
	QuestionStartTime    *time.Time    `json:"questionStartTime"`
	TimeLimit            int           `json:"timeLimit"`
	Category             string        `json:"category"`
	GameMode             string        `json:"gameMode"`
	CreatedAt            time.Time     `json:"createdAt"`
	Players              []PlayerView  `json:"players"`
	CurrentQuestion      *QuestionView `json:"currentQuestion,omitempty"`
}

type ScoreEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Score    int    `json:"score"`
}

type QuestionResult struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	Answer      *int   `json:"answer"`
	Answered    bool   `json:"answered"`
	Correct     bool   `json:"correct"`
	ScoreGained int    `json:"scoreGained"`
	TotalScore  int    `json:"totalScore"`
}

type CreateRoomResult struct {
	RoomCode      string `json:"roomCode"`
	PlayerID      string `json:"playerId"`
	Status        string `json:"status"`
	MaxPlayers    int    `json:"maxPlayers"`
	TimeLimit     int    `json:"timeLimit"`
	QuestionCount int    `json:"questionCount"`
	GameMode      string `json:"gameMode"`
	Category      string `json:"category,omitempty"`
}

type JoinRoomResult struct {
	PlayerID string        `json:"playerId"`
	Room     *RoomSnapshot `json:"room"`
}

type StartGameResult struct {
	Started           bool         `json:"started"`
	TotalQuestions    int          `json:"totalQuestions"`
	CurrentQuestion   QuestionView `json:"currentQuestion"`
	QuestionStartTime time.Time    `json:"questionStartTime"`
}

type AdvanceResult struct {
	GameOver          bool             `json:"gameOver"`
	CorrectAnswer     int              `json:"correctAnswer"`
	QuestionResults   []QuestionResult `json:"questionResults"`
	NextQuestion      *QuestionView    `json:"nextQuestion,omitempty"`
	QuestionStartTime *time.Time       `json:"questionStartTime,omitempty"`
	FinalScores       []ScoreEntry     `json:"finalScores,omitempty"`
}

type AnswerResult struct {
	Accepted    bool `json:"accepted"`
	Correct     bool `json:"correct"`
	ScoreGained int  `json:"scoreGained"`
	TotalScore  int  `json:"totalScore"`
}

const (
	LeaveActionRoomClosed = "room_closed"
	LeaveActionPlayerLeft = "player_left"
)

type LeaveResult struct {
	Action string `json:"action"`
}

func questionView(q *models.GameQuestion) QuestionView {
	return QuestionView{
		Index:      q.QuestionIndex,
		Text:       q.QuestionText,
		Options:    q.Options.Data(),
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}

func playerView(p *models.Player) PlayerView {
	return PlayerView{
		ID:          p.ID,
		Name:        p.Name,
		Avatar:      p.Avatar,
		IsHost:      p.IsHost,
		Score:       p.Score,
		HasAnswered: p.CurrentAnswer != nil,
		JoinedAt:    p.JoinedAt,
	}
}

func roomSnapshot(room *models.Room, players []models.Player) *RoomSnapshot {
	snapshot := &RoomSnapshot{
		Code:                 room.Code,
		Status:               room.Status,
		MaxPlayers:           room.MaxPlayers,
		CurrentQuestionIndex: room.CurrentQuestionIndex,
		TotalQuestions:       room.TotalQuestions,
		QuestionStartTime:    room.QuestionStartTime,
		TimeLimit:            room.TimeLimitSeconds,
		Category:             room.Category,
		GameMode:             room.GameMode,
		CreatedAt:            room.CreatedAt,
		Players:              make([]PlayerView, 0, len(players)),
	}
	for i := range players {
		snapshot.Players = append(snapshot.Players, playerView(&players[i]))
	}
	return snapshot
}
