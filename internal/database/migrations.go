package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"gorm.io/gorm"
)

// compositeIndexes are query paths the struct tags do not describe.
var compositeIndexes = []struct {
	model   interface{}
	table   string
	name    string
	columns string
}{
	// Project task boards filter by status
	{&models.Task{}, "tasks", "idx_tasks_project_status", "project_id, status"},
	// Personal task lists: creator_id with project_id IS NULL
	{&models.Task{}, "tasks", "idx_tasks_creator_project", "creator_id, project_id"},
	// Sole-authority checks count top-role holders per scope
	{&models.WorkspaceMember{}, "workspace_members", "idx_workspace_members_workspace_role", "workspace_id, role"},
	{&models.ProjectMember{}, "project_members", "idx_project_members_project_role", "project_id, role"},
	// Invitation sweep
	{&models.WorkspaceInvitation{}, "workspace_invitations", "idx_invitations_expiry_accepted", "expires_at, accepted_at"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB, log logrus.FieldLogger) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.WithFields(logrus.Fields{"index": idx.name, "table": idx.table}).Info("Created index")
	}

	return nil
}
