package model

import "time"

// KVRecord backs the device-local store: one opaque blob per logical key.
// Writes replace the whole row, so readers never see a partial value.
type KVRecord struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     []byte    `gorm:"type:blob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVRecord) TableName() string {
	return "kv_records"
}
