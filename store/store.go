// Package store implements services.Store on top of gorm.
package store

import (
	"context"
	"errors"
	"time"

	"triviaroom/models"
	"triviaroom/services"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GormStore struct {
	db *gorm.DB
}

var _ services.Store = (*GormStore)(nil)

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables the engine uses and fills the match keys of
// rows written before those columns existed.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Room{},
		&models.Player{},
		&models.GameQuestion{},
		&models.Question{},
	); err != nil {
		return err
	}
	return backfillKeys(db)
}

func backfillKeys(db *gorm.DB) error {
	var players []models.Player
	err := db.Where("(name_key IS NULL OR name_key = '') AND name <> ''").
		FindInBatches(&players, 100, func(tx *gorm.DB, _ int) error {
			for _, p := range players {
				if err := tx.Model(&models.Player{}).Where("id = ?", p.ID).
					Update("name_key", models.FoldKey(p.Name)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
	if err != nil {
		return err
	}

	var questions []models.Question
	return db.Where("(category_key IS NULL OR category_key = '') AND category <> ''").
		FindInBatches(&questions, 100, func(tx *gorm.DB, _ int) error {
			for _, q := range questions {
				if err := tx.Model(&models.Question{}).Where("id = ?", q.ID).
					Update("category_key", models.FoldKey(q.Category)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func (s *GormStore) RoomExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Room{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	return s.db.WithContext(ctx).Create(room).Error
}

func (s *GormStore) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (s *GormStore) UpdateRoom(ctx context.Context, code string, update services.RoomUpdate) error {
	fields := map[string]interface{}{}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.CurrentQuestionIndex != nil {
		fields["current_question_index"] = *update.CurrentQuestionIndex
	}
	if update.TotalQuestions != nil {
		fields["total_questions"] = *update.TotalQuestions
	}
	if update.QuestionStartTime != nil {
		fields["question_start_time"] = *update.QuestionStartTime
	}
	if update.ClearQuestionStart {
		fields["question_start_time"] = nil
	}
	if len(fields) == 0 {
		return nil
	}

	result := s.db.WithContext(ctx).Model(&models.Room{}).Where("code = ?", code).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteRoom(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", code).Delete(&models.GameQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_code = ?", code).Delete(&models.Player{}).Error; err != nil {
			return err
		}
		result := tx.Where("code = ?", code).Delete(&models.Room{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) PurgeRoomsCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&models.Room{}).Select("code").Where("created_at < ?", cutoff)
		if err := tx.Where("room_code IN (?)", expired).Delete(&models.GameQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_code IN (?)", expired).Delete(&models.Player{}).Error; err != nil {
			return err
		}
		result := tx.Where("created_at < ?", cutoff).Delete(&models.Room{})
		purged = result.RowsAffected
		return result.Error
	})
	return purged, err
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	return s.db.WithContext(ctx).Create(player).Error
}

func (s *GormStore) GetPlayer(ctx context.Context, code, playerID string) (*models.Player, error) {
	var player models.Player
	err := s.db.WithContext(ctx).
		Where("id = ? AND room_code = ?", playerID, code).
		First(&player).Error
	if err != nil {
		return nil, translate(err)
	}
	return &player, nil
}

func (s *GormStore) ListPlayers(ctx context.Context, code string) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("joined_at ASC, id ASC").
		Find(&players).Error
	return players, err
}

func (s *GormStore) CountPlayers(ctx context.Context, code string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Player{}).Where("room_code = ?", code).Count(&count).Error
	return int(count), err
}

func (s *GormStore) PlayerNameTaken(ctx context.Context, code, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("room_code = ? AND name_key = ?", code, models.FoldKey(name)).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) DeletePlayer(ctx context.Context, code, playerID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND room_code = ?", playerID, code).
		Delete(&models.Player{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormStore) ResetPlayers(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Model(&models.Player{}).
		Where("room_code = ?", code).
		Updates(map[string]interface{}{
			"score":          0,
			"current_answer": nil,
		}).Error
}

func (s *GormStore) ClearCurrentAnswers(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Model(&models.Player{}).
		Where("room_code = ?", code).
		Update("current_answer", nil).Error
}

func (s *GormStore) RecordAnswer(ctx context.Context, code, playerID string, previous []models.AnswerRecord, rec models.AnswerRecord) (*models.Player, error) {
	history := make([]models.AnswerRecord, 0, len(previous)+1)
	history = append(history, previous...)
	history = append(history, rec)

	result := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ? AND room_code = ? AND current_answer IS NULL", playerID, code).
		Updates(map[string]interface{}{
			"current_answer": rec.Answer,
			"answers":        datatypes.NewJSONType(history),
			"score":          gorm.Expr("score + ?", rec.Score),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// either the player is gone or someone else already answered
		if _, err := s.GetPlayer(ctx, code, playerID); err != nil {
			return nil, err
		}
		return nil, models.ErrStaleWrite
	}

	return s.GetPlayer(ctx, code, playerID)
}

func (s *GormStore) SelectQuestions(ctx context.Context, category string, limit int) ([]models.Question, error) {
	var questions []models.Question
	query := s.db.WithContext(ctx).Model(&models.Question{})
	if category != "" {
		query = query.Where("category_key = ?", models.FoldKey(category))
	}
	err := query.Order("RANDOM()").Limit(limit).Find(&questions).Error
	return questions, err
}

// InsertGameQuestions replaces whatever rows a failed earlier start left for the room.
func (s *GormStore) InsertGameQuestions(ctx context.Context, questions []models.GameQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_code = ?", questions[0].RoomCode).Delete(&models.GameQuestion{}).Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
}

func (s *GormStore) GetGameQuestion(ctx context.Context, code string, index int) (*models.GameQuestion, error) {
	var q models.GameQuestion
	err := s.db.WithContext(ctx).
		Where("room_code = ? AND question_index = ?", code, index).
		First(&q).Error
	if err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *GormStore) AddQuestions(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&questions, 100).Error
	})
}

func (s *GormStore) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Question{}).Count(&count).Error
	return count, err
}

func (s *GormStore) Categories(ctx context.Context) ([]services.CategoryCount, error) {
	var categories []services.CategoryCount
	err := s.db.WithContext(ctx).Model(&models.Question{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("category").
		Scan(&categories).Error
	return categories, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}
