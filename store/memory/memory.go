// Package memory is an in-process Store used by tests and single-node development runs.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"triviaroom/models"
	"triviaroom/services"

	"gorm.io/datatypes"
)

type questionKey struct {
	code  string
	index int
}

type Store struct {
	mu sync.RWMutex

	rooms         map[string]models.Room
	players       map[string]models.Player
	gameQuestions map[questionKey]models.GameQuestion
	bank          []models.Question
	nextBankID    uint
}

var _ services.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		rooms:         make(map[string]models.Room),
		players:       make(map[string]models.Player),
		gameQuestions: make(map[questionKey]models.GameQuestion),
		nextBankID:    1,
	}
}

func (s *Store) RoomExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *Store) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return errDuplicate("room", room.Code)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	room.UpdatedAt = room.CreatedAt
	s.rooms[room.Code] = copyRoom(*room)
	return nil
}

func (s *Store) GetRoom(_ context.Context, code string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	r := copyRoom(room)
	return &r, nil
}

func (s *Store) UpdateRoom(_ context.Context, code string, update services.RoomUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return models.ErrNotFound
	}
	if update.Status != nil {
		room.Status = *update.Status
	}
	if update.CurrentQuestionIndex != nil {
		room.CurrentQuestionIndex = *update.CurrentQuestionIndex
	}
	if update.TotalQuestions != nil {
		room.TotalQuestions = *update.TotalQuestions
	}
	if update.QuestionStartTime != nil {
		t := *update.QuestionStartTime
		room.QuestionStartTime = &t
	}
	if update.ClearQuestionStart {
		room.QuestionStartTime = nil
	}
	room.UpdatedAt = time.Now().UTC()
	s.rooms[code] = room
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return models.ErrNotFound
	}
	s.deleteRoomLocked(code)
	return nil
}

func (s *Store) PurgeRoomsCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for code, room := range s.rooms {
		if room.CreatedAt.Before(cutoff) {
			s.deleteRoomLocked(code)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) deleteRoomLocked(code string) {
	delete(s.rooms, code)
	for id, p := range s.players {
		if p.RoomCode == code {
			delete(s.players, id)
		}
	}
	for key := range s.gameQuestions {
		if key.code == code {
			delete(s.gameQuestions, key)
		}
	}
}

func (s *Store) CreatePlayer(_ context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[player.RoomCode]; !ok {
		return errMissingRoom(player.RoomCode)
	}
	if _, ok := s.players[player.ID]; ok {
		return errDuplicate("player", player.ID)
	}
	now := time.Now().UTC()
	player.CreatedAt, player.UpdatedAt = now, now
	player.NameKey = models.FoldKey(player.Name)
	s.players[player.ID] = copyPlayer(*player)
	return nil
}

func (s *Store) GetPlayer(_ context.Context, code, playerID string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok || p.RoomCode != code {
		return nil, models.ErrNotFound
	}
	cp := copyPlayer(p)
	return &cp, nil
}

func (s *Store) ListPlayers(_ context.Context, code string) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]models.Player, 0)
	for _, p := range s.players {
		if p.RoomCode == code {
			players = append(players, copyPlayer(p))
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
	return players, nil
}

func (s *Store) CountPlayers(_ context.Context, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.players {
		if p.RoomCode == code {
			n++
		}
	}
	return n, nil
}

func (s *Store) PlayerNameTaken(_ context.Context, code, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.RoomCode == code && p.NameKey == models.FoldKey(name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeletePlayer(_ context.Context, code, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok || p.RoomCode != code {
		return models.ErrNotFound
	}
	delete(s.players, playerID)
	return nil
}

func (s *Store) ResetPlayers(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		if p.RoomCode == code {
			p.Score = 0
			p.CurrentAnswer = nil
			s.players[id] = p
		}
	}
	return nil
}

func (s *Store) ClearCurrentAnswers(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		if p.RoomCode == code {
			p.CurrentAnswer = nil
			s.players[id] = p
		}
	}
	return nil
}

func (s *Store) RecordAnswer(_ context.Context, code, playerID string, previous []models.AnswerRecord, rec models.AnswerRecord) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok || p.RoomCode != code {
		return nil, models.ErrNotFound
	}
	if p.CurrentAnswer != nil {
		return nil, models.ErrStaleWrite
	}

	history := make([]models.AnswerRecord, 0, len(previous)+1)
	history = append(history, previous...)
	history = append(history, rec)

	answer := rec.Answer
	p.CurrentAnswer = &answer
	p.Answers = datatypes.NewJSONType(history)
	p.Score += rec.Score
	p.UpdatedAt = time.Now().UTC()
	s.players[playerID] = p

	cp := copyPlayer(p)
	return &cp, nil
}

func (s *Store) SelectQuestions(_ context.Context, category string, limit int) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]models.Question, 0, len(s.bank))
	for _, q := range s.bank {
		if category == "" || q.CategoryKey == models.FoldKey(category) {
			candidates = append(candidates, q)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *Store) InsertGameQuestions(_ context.Context, questions []models.GameQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		for key := range s.gameQuestions {
			if key.code == q.RoomCode {
				delete(s.gameQuestions, key)
			}
		}
	}
	for _, q := range questions {
		s.gameQuestions[questionKey{code: q.RoomCode, index: q.QuestionIndex}] = q
	}
	return nil
}

func (s *Store) GetGameQuestion(_ context.Context, code string, index int) (*models.GameQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.gameQuestions[questionKey{code: code, index: index}]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &q, nil
}

func (s *Store) AddQuestions(_ context.Context, questions []models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range questions {
		questions[i].ID = s.nextBankID
		questions[i].CreatedAt, questions[i].UpdatedAt = now, now
		questions[i].CategoryKey = models.FoldKey(questions[i].Category)
		s.nextBankID++
		s.bank = append(s.bank, questions[i])
	}
	return nil
}

func (s *Store) CountQuestions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.bank)), nil
}

func (s *Store) Categories(_ context.Context) ([]services.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int64)
	for _, q := range s.bank {
		counts[q.Category]++
	}
	categories := make([]services.CategoryCount, 0, len(counts))
	for c, n := range counts {
		categories = append(categories, services.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Category < categories[j].Category })
	return categories, nil
}

func copyRoom(r models.Room) models.Room {
	if r.QuestionStartTime != nil {
		t := *r.QuestionStartTime
		r.QuestionStartTime = &t
	}
	return r
}

func copyPlayer(p models.Player) models.Player {
	if p.CurrentAnswer != nil {
		a := *p.CurrentAnswer
		p.CurrentAnswer = &a
	}
	history := p.Answers.Data()
	p.Answers = datatypes.NewJSONType(append([]models.AnswerRecord{}, history...))
	return p
}

func errDuplicate(kind, id string) error {
	return fmt.Errorf("duplicate %s %s", kind, id)
}

func errMissingRoom(code string) error {
	return fmt.Errorf("room %s does not exist", code)
}
