package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskAssignment links a task to one of its assignees.
type TaskAssignment struct {
	TaskID       uint64         `gorm:"primarykey" json:"task_id"`
	UserID       uint64         `gorm:"primarykey" json:"user_id"`
	AssignedByID uint64         `gorm:"not null;default:0" json:"assigned_by_id"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
