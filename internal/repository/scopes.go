package repository

import (
	"gorm.io/gorm"

	"github.com/yukikurage/workspace-task-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// PersonalTasksOf restricts a task query to the personal tasks created by userID.
func PersonalTasksOf(userID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id IS NULL AND tasks.creator_id = ?", userID)
	}
}

// ProjectTasksOf restricts a task query to one project.
func ProjectTasksOf(projectID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tasks.project_id = ?", projectID)
	}
}
