package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"triviaroom/models"
)

// Store is the set of reads and writes the room engine issues against persistent storage.
// Lookups of a missing row return models.ErrNotFound.
type Store interface {
	RoomExists(ctx context.Context, code string) (bool, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	UpdateRoom(ctx context.Context, code string, update RoomUpdate) error
	DeleteRoom(ctx context.Context, code string) error
	PurgeRoomsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, code, playerID string) (*models.Player, error)
	ListPlayers(ctx context.Context, code string) ([]models.Player, error)
	CountPlayers(ctx context.Context, code string) (int, error)
	PlayerNameTaken(ctx context.Context, code, name string) (bool, error)
	DeletePlayer(ctx context.Context, code, playerID string) error
	// ResetPlayers sets score to 0 and clears the current answer of every player in the room.
	ResetPlayers(ctx context.Context, code string) error
	ClearCurrentAnswers(ctx context.Context, code string) error
	// RecordAnswer writes append(previous, rec) as the player's history, sets the current
	// answer to rec.Answer and adds rec.Score to the total, in one write conditioned on the
	// current answer still being empty. A failed condition returns models.ErrStaleWrite.
	RecordAnswer(ctx context.Context, code, playerID string, previous []models.AnswerRecord, rec models.AnswerRecord) (*models.Player, error)

	SelectQuestions(ctx context.Context, category string, limit int) ([]models.Question, error)
	InsertGameQuestions(ctx context.Context, questions []models.GameQuestion) error
	GetGameQuestion(ctx context.Context, code string, index int) (*models.GameQuestion, error)

	AddQuestions(ctx context.Context, questions []models.Question) error
	CountQuestions(ctx context.Context) (int64, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
}

// RoomUpdate lists the room fields a lifecycle transition may change. Nil fields are left alone.
type RoomUpdate struct {
	Status               *string
	CurrentQuestionIndex *int
	TotalQuestions       *int
	QuestionStartTime    *time.Time
	ClearQuestionStart   bool
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// SnapshotCache holds short-lived copies of GetRoomState results.
type SnapshotCache interface {
	Get(ctx context.Context, code string) (*RoomSnapshot, bool, error)
	Set(ctx context.Context, snapshot *RoomSnapshot) error
	Invalidate(ctx context.Context, code string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*RoomSnapshot, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, *RoomSnapshot) error                 { return nil }
func (noopCache) Invalidate(context.Context, string) error                 { return nil }

const snapshotStripes = 256

// versionedCache drops a Set when the room was invalidated after the snapshot's reads began.
// Rooms share a counter per stripe, so an unrelated write can only cost a cache miss.
type versionedCache struct {
	SnapshotCache
	stripes [snapshotStripes]struct {
		mu      sync.Mutex
		version uint64
	}
}

func newVersionedCache(cache SnapshotCache) *versionedCache {
	return &versionedCache{SnapshotCache: cache}
}

func stripeFor(code string) int {
	h := fnv.New32a()
	h.Write([]byte(code))
	return int(h.Sum32() % snapshotStripes)
}

func (c *versionedCache) version(code string) uint64 {
	st := &c.stripes[stripeFor(code)]
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.version
}

func (c *versionedCache) Invalidate(ctx context.Context, code string) error {
	st := &c.stripes[stripeFor(code)]
	st.mu.Lock()
	st.version++
	st.mu.Unlock()
	return c.SnapshotCache.Invalidate(ctx, code)
}

// setIfCurrent stores the snapshot only if no invalidation happened since version was taken.
func (c *versionedCache) setIfCurrent(ctx context.Context, snapshot *RoomSnapshot, version uint64) error {
	st := &c.stripes[stripeFor(snapshot.Code)]
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.version != version {
		return nil
	}
	return c.SnapshotCache.Set(ctx, snapshot)
}
