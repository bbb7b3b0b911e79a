package model

import (
	"time"

	"gorm.io/gorm"
)

type SyncStatus string

const (
	StatusSuccess SyncStatus = "SUCCESS"
	StatusFailed  SyncStatus = "FAILED"
)

type History struct {
	gorm.Model
	Status   SyncStatus `gorm:"not null"`
	Decision string     `gorm:"not null"`
	SrcPath  string
	Target   string    `gorm:"not null"`
	ErrMsg   string
	SyncedAt time.Time `gorm:"not null;index"`
}
