package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// CreateWithManager creates a project and its first manager atomically
func (r *GormProjectRepository) CreateWithManager(ctx context.Context, project *models.Project, manager *models.ProjectMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		manager.ProjectID = project.ID
		manager.UserID = project.CreatorID
		manager.Role = models.ProjectRoleManager

		return tx.Create(manager).Error
	})
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByWorkspace lists every project of a workspace
func (r *GormProjectRepository) ListByWorkspace(ctx context.Context, workspaceID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC, id ASC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListForMember lists the projects of a workspace the user holds a role in
func (r *GormProjectRepository) ListForMember(ctx context.Context, workspaceID, userID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("projects.workspace_id = ? AND project_members.user_id = ?", workspaceID, userID).
		Order("projects.created_at ASC, projects.id ASC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// Delete deletes a project and all related data in a transaction
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteProjectContents(tx, []uint64{id}); err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, id).Error
	})
}

// AddMember adds a member to a project
func (r *GormProjectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// FindMember finds a specific project member
func (r *GormProjectRepository) FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberRole changes the role of a project member
func (r *GormProjectRepository) UpdateMemberRole(ctx context.Context, projectID, userID uint64, role models.ProjectRole, check ProjectMemberCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLockedMembers(tx, projectID, userID, check); err != nil {
			return err
		}

		return tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Update("role", role).Error
	})
}

// RemoveMember removes a member from a project
func (r *GormProjectRepository) RemoveMember(ctx context.Context, projectID, userID uint64, check ProjectMemberCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLockedMembers(tx, projectID, userID, check); err != nil {
			return err
		}

		return tx.Where("project_id = ? AND user_id = ?", projectID, userID).
			Delete(&models.ProjectMember{}).Error
	})
}

// LoadSnapshot reads the project, its workspace and both member lists in one transaction
// so the project and workspace resolvers see the same generation of data.
func (r *GormProjectRepository) LoadSnapshot(ctx context.Context, projectID uint64) (*ProjectSnapshot, error) {
	var snapshot *ProjectSnapshot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		snapshot, err = loadSnapshot(tx, projectID, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// checkLockedMembers runs check against a snapshot whose project member rows
// are locked until tx ends. userID must still be a member afterwards.
func checkLockedMembers(tx *gorm.DB, projectID, userID uint64, check ProjectMemberCheck) error {
	snapshot, err := loadSnapshot(tx, projectID, true)
	if err != nil {
		return err
	}

	if check != nil {
		if err := check(snapshot); err != nil {
			return err
		}
	}

	for _, m := range snapshot.ProjectMembers {
		if m.UserID == userID {
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// loadSnapshot reads a ProjectSnapshot inside tx. With lock set the project
// member rows are read FOR UPDATE and users are not preloaded.
func loadSnapshot(tx *gorm.DB, projectID uint64, lock bool) (*ProjectSnapshot, error) {
	var snapshot ProjectSnapshot

	if err := tx.First(&snapshot.Project, projectID).Error; err != nil {
		return nil, err
	}

	if err := tx.First(&snapshot.Workspace, snapshot.Project.WorkspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: workspace %d", ErrIncompleteSnapshot, snapshot.Project.WorkspaceID)
		}
		return nil, err
	}

	members := tx.Where("project_id = ?", projectID).Order("joined_at ASC, id ASC")
	if lock {
		members = members.Clauses(lockForUpdate)
	} else {
		members = members.Preload("User")
	}
	if err := members.Find(&snapshot.ProjectMembers).Error; err != nil {
		return nil, err
	}

	if err := tx.Where("workspace_id = ?", snapshot.Workspace.ID).
		Order("joined_at ASC, id ASC").
		Find(&snapshot.WorkspaceMembers).Error; err != nil {
		return nil, err
	}

	return &snapshot, nil
}
