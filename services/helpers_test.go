package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"triviaroom/models"
	"triviaroom/scoring"
	"triviaroom/services"
	"triviaroom/store/memory"

	"github.com/stretchr/testify/require"
)

type resources struct {
	ctx     context.Context
	store   *memory.Store
	rooms   *services.RoomService
	answers *services.AnswerService
	bank    *services.BankService
	cache   *recordingCache
}

func initResources(t *testing.T, opts ...services.Option) *resources {
	t.Helper()
	return initResourcesWithStore(t, memory.New(), opts...)
}

func initResourcesWithStore(t *testing.T, store *memory.Store, opts ...services.Option) *resources {
	t.Helper()
	rules := services.DefaultRules()
	rc := newRecordingCache()
	opts = append([]services.Option{services.WithCache(rc)}, opts...)
	return &resources{
		ctx:     context.Background(),
		store:   store,
		rooms:   services.NewRoomService(store, rules, opts...),
		answers: services.NewAnswerService(store, scoring.New(rules.BaseScore, rules.TimeBonusMultiplier), opts...),
		bank:    services.NewBankService(store, opts...),
		cache:   rc,
	}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// seedBank adds n questions whose correct answer is always option 0.
func seedBank(t *testing.T, r *resources, category string, n int) {
	t.Helper()
	questions := make([]services.NewQuestion, n)
	for i := range questions {
		questions[i] = services.NewQuestion{
			Text:          fmt.Sprintf("%s question %d", category, i),
			Options:       []string{"right", "wrong", "also wrong", "nope"},
			CorrectAnswer: intPtr(0),
			Category:      category,
			Difficulty:    "easy",
		}
	}
	added, err := r.bank.AddQuestions(r.ctx, services.AddQuestionsRequest{Questions: questions})
	require.NoError(t, err)
	require.Equal(t, n, added)
}

func createRoom(t *testing.T, r *resources, host string, questionCount int) *services.CreateRoomResult {
	t.Helper()
	created, err := r.rooms.CreateRoom(r.ctx, services.CreateRoomRequest{
		PlayerName:    host,
		Avatar:        "cat",
		QuestionCount: intPtr(questionCount),
	})
	require.NoError(t, err)
	return created
}

func joinRoom(t *testing.T, r *resources, code, name string) string {
	t.Helper()
	joined, err := r.rooms.JoinRoom(r.ctx, services.JoinRoomRequest{RoomCode: code, PlayerName: name, Avatar: "dog"})
	require.NoError(t, err)
	return joined.PlayerID
}

// startedRoom returns a room with a host and one guest, already started.
func startedRoom(t *testing.T, r *resources, questionCount int) (code, hostID, guestID string) {
	t.Helper()
	seedBank(t, r, "general", questionCount)
	created := createRoom(t, r, "Alice", questionCount)
	guestID = joinRoom(t, r, created.RoomCode, "Bob")
	_, err := r.rooms.StartGame(r.ctx, created.RoomCode, created.PlayerID)
	require.NoError(t, err)
	return created.RoomCode, created.PlayerID, guestID
}

func answer(r *resources, code, playerID string, option int, ms int64) (*services.AnswerResult, error) {
	return r.answers.SubmitAnswer(r.ctx, code, services.SubmitAnswerRequest{
		PlayerID: playerID,
		Answer:   intPtr(option),
		TimeMs:   int64Ptr(ms),
	})
}

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string]*services.RoomSnapshot
	invalidated map[string]int
	getErr      error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries:     make(map[string]*services.RoomSnapshot),
		invalidated: make(map[string]int),
	}
}

func (c *recordingCache) Get(_ context.Context, code string) (*services.RoomSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	s, ok := c.entries[code]
	return s, ok, nil
}

func (c *recordingCache) Set(_ context.Context, s *services.RoomSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[s.Code] = s
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, code)
	c.invalidated[code]++
	return nil
}

func (c *recordingCache) invalidations(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[code]
}

var errInjected = errors.New("injected store failure")

// faultyStore wraps the memory store and fails selected calls.
type faultyStore struct {
	*memory.Store

	failCreatePlayer bool
	failListPlayers  bool
	failResetPlayers bool
	failClearAnswers bool
	dropGameQuestion bool
	deletedRooms     []string

	// onListPlayers runs once, before the next ListPlayers call reads the store.
	onListPlayers func()

	// staleReads makes GetPlayer report no current answer, as a read that raced a write would.
	staleReads bool
}

func (f *faultyStore) CreatePlayer(ctx context.Context, p *models.Player) error {
	if f.failCreatePlayer {
		return errInjected
	}
	return f.Store.CreatePlayer(ctx, p)
}

func (f *faultyStore) ListPlayers(ctx context.Context, code string) ([]models.Player, error) {
	if f.failListPlayers {
		return nil, errInjected
	}
	if hook := f.onListPlayers; hook != nil {
		f.onListPlayers = nil
		hook()
	}
	return f.Store.ListPlayers(ctx, code)
}

func (f *faultyStore) ResetPlayers(ctx context.Context, code string) error {
	if f.failResetPlayers {
		return errInjected
	}
	return f.Store.ResetPlayers(ctx, code)
}

func (f *faultyStore) ClearCurrentAnswers(ctx context.Context, code string) error {
	if f.failClearAnswers {
		return errInjected
	}
	return f.Store.ClearCurrentAnswers(ctx, code)
}

func (f *faultyStore) DeleteRoom(ctx context.Context, code string) error {
	f.deletedRooms = append(f.deletedRooms, code)
	return f.Store.DeleteRoom(ctx, code)
}

func (f *faultyStore) GetGameQuestion(ctx context.Context, code string, index int) (*models.GameQuestion, error) {
	if f.dropGameQuestion {
		return nil, models.ErrNotFound
	}
	return f.Store.GetGameQuestion(ctx, code, index)
}

func (f *faultyStore) GetPlayer(ctx context.Context, code, id string) (*models.Player, error) {
	p, err := f.Store.GetPlayer(ctx, code, id)
	if err == nil && f.staleReads {
		p.CurrentAnswer = nil
	}
	return p, err
}

// faultyResources wires services over a faultyStore with a recording cache and a two-question bank.
func faultyResources(t *testing.T) (*faultyStore, *resources) {
	t.Helper()
	fs := &faultyStore{Store: memory.New()}
	rules := services.DefaultRules()
	rc := newRecordingCache()
	opts := []services.Option{services.WithCache(rc)}
	r := &resources{
		ctx:     context.Background(),
		store:   fs.Store,
		rooms:   services.NewRoomService(fs, rules, opts...),
		answers: services.NewAnswerService(fs, scoring.New(rules.BaseScore, rules.TimeBonusMultiplier), opts...),
		bank:    services.NewBankService(fs, opts...),
		cache:   rc,
	}
	seedBank(t, r, "general", 2)
	return fs, r
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
