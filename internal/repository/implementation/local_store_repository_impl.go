package implementation

import (
	"context"
	"errors"

	"aayush-bot/internal/model"
	"aayush-bot/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LocalStoreRepositoryImpl struct {
	db *gorm.DB
}

func NewLocalStoreRepository(db *gorm.DB) contract.LocalStoreRepository {
	return &LocalStoreRepositoryImpl{
		db: db,
	}
}

func (r *LocalStoreRepositoryImpl) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec model.KVRecord
	err := r.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Value, true, nil
}

func (r *LocalStoreRepositoryImpl) Set(ctx context.Context, key string, value []byte) error {
	rec := model.KVRecord{Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
}

func (r *LocalStoreRepositoryImpl) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&model.KVRecord{}, "key = ?", key).Error
}
