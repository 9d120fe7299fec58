package mapper

import (
	"encoding/json"

	"aayush-bot/internal/entity"
	"aayush-bot/internal/model"
)

// UserMapper converts users and activity snapshots to their local-store
// records.
type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) UserToRecord(u *entity.User) *model.UserRecord {
	return &model.UserRecord{
		Id:        u.Id,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
		Provider:  string(u.Provider),
		IsAdmin:   u.IsAdmin,
	}
}

func (m *UserMapper) UserToEntity(rec *model.UserRecord) *entity.User {
	return &entity.User{
		Id:        rec.Id,
		Name:      rec.Name,
		Email:     rec.Email,
		AvatarURL: rec.AvatarURL,
		Provider:  entity.UserProvider(rec.Provider),
		IsAdmin:   rec.IsAdmin,
	}
}

func (m *UserMapper) ActivityToRecord(a *entity.UserActivity) *model.UserActivityRecord {
	return &model.UserActivityRecord{
		UserRecord: model.UserRecord{
			Id:       a.Id,
			Name:     a.Name,
			Email:    a.Email,
			Provider: string(a.Provider),
			IsAdmin:  a.IsAdmin,
		},
		LastActive: a.LastActive,
		Status:     string(a.Status),
	}
}

func (m *UserMapper) ActivityToEntity(rec *model.UserActivityRecord) *entity.UserActivity {
	return &entity.UserActivity{
		Id:         rec.Id,
		Name:       rec.Name,
		Email:      rec.Email,
		Provider:   entity.UserProvider(rec.Provider),
		IsAdmin:    rec.IsAdmin,
		LastActive: rec.LastActive,
		Status:     entity.ActivityStatus(rec.Status),
	}
}

func (m *UserMapper) EncodeUser(u *entity.User) ([]byte, error) {
	return json.Marshal(m.UserToRecord(u))
}

func (m *UserMapper) DecodeUser(blob []byte) (*entity.User, error) {
	var rec model.UserRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, err
	}
	return m.UserToEntity(&rec), nil
}

func (m *UserMapper) EncodeActivities(items []*entity.UserActivity) ([]byte, error) {
	records := make([]*model.UserActivityRecord, 0, len(items))
	for _, a := range items {
		records = append(records, m.ActivityToRecord(a))
	}
	return json.Marshal(records)
}

func (m *UserMapper) DecodeActivities(blob []byte) ([]*entity.UserActivity, error) {
	var records []*model.UserActivityRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, err
	}
	items := make([]*entity.UserActivity, 0, len(records))
	for _, rec := range records {
		items = append(items, m.ActivityToEntity(rec))
	}
	return items, nil
}
