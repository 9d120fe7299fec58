package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"aayush-bot/internal/model"
	"aayush-bot/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollectorUserRepositoryImpl struct {
	db *gorm.DB
}

func NewCollectorUserRepository(db *gorm.DB) contract.CollectorUserRepository {
	return &CollectorUserRepositoryImpl{
		db: db,
	}
}

func (r *CollectorUserRepositoryImpl) UpsertPresence(ctx context.Context, email, name string, online bool, lastActive time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.CollectorUser
		err := tx.First(&user, "email = ?", email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = model.CollectorUser{
				Id:        uuid.New(),
				Email:     email,
				Chats:     []byte("[]"),
				CreatedAt: time.Now(),
			}
		} else if err != nil {
			return err
		}
		user.Name = name
		user.IsOnline = online
		user.LastActive = lastActive
		return tx.Save(&user).Error
	})
}

func (r *CollectorUserRepositoryImpl) AppendChatLine(ctx context.Context, email string, line *model.CollectorChatLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.CollectorUser
		err := tx.First(&user, "email = ?", email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = model.CollectorUser{
				Id:        uuid.New(),
				Email:     email,
				Chats:     []byte("[]"),
				CreatedAt: time.Now(),
			}
		} else if err != nil {
			return err
		}

		var chats []*model.CollectorChatLine
		if len(user.Chats) > 0 {
			if err := json.Unmarshal(user.Chats, &chats); err != nil {
				// A corrupt transcript should not block new lines.
				chats = nil
			}
		}
		chats = append(chats, line)
		encoded, err := json.Marshal(chats)
		if err != nil {
			return err
		}
		user.Chats = encoded
		user.LastActive = time.UnixMilli(line.Timestamp)
		return tx.Save(&user).Error
	})
}

func (r *CollectorUserRepositoryImpl) FindAllByLastActive(ctx context.Context) ([]*model.CollectorUser, error) {
	var users []*model.CollectorUser
	err := r.db.WithContext(ctx).
		Order("last_active DESC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
