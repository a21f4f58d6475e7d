package services_test

import (
	"testing"

	"triviaroom/services"
	"triviaroom/store"
	"triviaroom/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, store.Migrate(db))
	return store.New(db)
}

func TestNonASCIINamesAndCategoriesMatchAcrossStores(t *testing.T) {
	stores := map[string]func(t *testing.T) services.Store{
		"memory": func(*testing.T) services.Store { return memory.New() },
		"sqlite": func(t *testing.T) services.Store { return newSQLiteStore(t) },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			st := open(t)
			rooms := services.NewRoomService(st, services.DefaultRules())
			bank := services.NewBankService(st)

			_, err := bank.AddQuestions(ctx, services.AddQuestionsRequest{Questions: []services.NewQuestion{
				{Text: "Qu'est-ce que l'inflation ?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: intPtr(0), Category: "Économie"},
				{Text: "Qu'est-ce qu'un marché ?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: intPtr(1), Category: "Économie"},
				{Text: "What is H2O?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: intPtr(2), Category: "science"},
			}})
			require.NoError(t, err)

			created, err := rooms.CreateRoom(ctx, services.CreateRoomRequest{
				PlayerName:    "Émile",
				Category:      "économie",
				QuestionCount: intPtr(5),
			})
			require.NoError(t, err)

			_, err = rooms.JoinRoom(ctx, services.JoinRoomRequest{RoomCode: created.RoomCode, PlayerName: "ÉMILE"})
			assert.ErrorIs(t, err, services.ErrConflict)
			_, err = rooms.JoinRoom(ctx, services.JoinRoomRequest{RoomCode: created.RoomCode, PlayerName: "émile"})
			assert.ErrorIs(t, err, services.ErrConflict)

			_, err = rooms.JoinRoom(ctx, services.JoinRoomRequest{RoomCode: created.RoomCode, PlayerName: "Zoé"})
			require.NoError(t, err)

			started, err := rooms.StartGame(ctx, created.RoomCode, created.PlayerID)
			require.NoError(t, err)
			assert.Equal(t, 2, started.TotalQuestions)
			assert.Equal(t, "Économie", started.CurrentQuestion.Category)
		})
	}
}
