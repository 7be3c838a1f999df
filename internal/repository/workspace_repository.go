package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrInvitationUsed is returned when an invitation was accepted concurrently.
	ErrInvitationUsed = errors.New("workspace repository: invitation already accepted")
	// ErrNoSuccessorOwner is returned when the recorded owner would leave no OWNER behind.
	ErrNoSuccessorOwner = errors.New("workspace repository: no remaining owner to take over the workspace")
)

// SoleManagerError is returned when removing a workspace member would leave
// projects without a MANAGER.
type SoleManagerError struct {
	ProjectIDs []uint64
}

func (e *SoleManagerError) Error() string {
	return fmt.Sprintf("workspace repository: user is the only manager of projects %v", e.ProjectIDs)
}

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

// CreateWithOwner creates a workspace and its owner membership atomically
func (r *GormWorkspaceRepository) CreateWithOwner(ctx context.Context, workspace *models.Workspace, owner *models.WorkspaceMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			return err
		}

		owner.WorkspaceID = workspace.ID
		owner.UserID = workspace.OwnerID
		owner.Role = models.WorkspaceRoleOwner

		return tx.Create(owner).Error
	})
}

// FindByID finds a workspace by ID
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id uint64) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := r.db.WithContext(ctx).First(&workspace, id).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// Update updates a workspace
func (r *GormWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	return r.db.WithContext(ctx).Save(workspace).Error
}

// Delete deletes a workspace and all related data in a transaction
func (r *GormWorkspaceRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projectIDs := tx.Unscoped().Model(&models.Project{}).Select("id").Where("workspace_id = ?", id)

		if err := deleteProjectContents(tx, projectIDs); err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.Project{}).Error; err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceInvitation{}).Error; err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Workspace{}, id).Error
	})
}

// deleteProjectContents removes tasks, assignments, comments and memberships
// of the projects selected by projectIDs.
func deleteProjectContents(tx *gorm.DB, projectIDs interface{}) error {
	taskIDs := tx.Unscoped().Model(&models.Task{}).Select("id").Where("project_id IN (?)", projectIDs)

	if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.TaskAssignment{}).Error; err != nil {
		return err
	}

	if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}

	if err := tx.Where("project_id IN (?)", projectIDs).Delete(&models.Task{}).Error; err != nil {
		return err
	}

	return tx.Where("project_id IN (?)", projectIDs).Delete(&models.ProjectMember{}).Error
}

// AddMember adds a member to a workspace
func (r *GormWorkspaceRepository) AddMember(ctx context.Context, member *models.WorkspaceMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// FindMember finds a specific workspace member
func (r *GormWorkspaceRepository) FindMember(ctx context.Context, workspaceID, userID uint64) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := r.db.WithContext(ctx).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a workspace
func (r *GormWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uint64) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := r.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("joined_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMembershipsByUserID lists all workspaces a user is a member of
func (r *GormWorkspaceRepository) ListMembershipsByUserID(ctx context.Context, userID uint64) ([]models.WorkspaceMember, error) {
	var memberships []models.WorkspaceMember
	if err := r.db.WithContext(ctx).Preload("Workspace").
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL").
		Where("workspace_members.user_id = ?", userID).
		Order("workspace_members.joined_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// UpdateMemberRole changes the role of a workspace member
func (r *GormWorkspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID uint64, role models.WorkspaceRole, check WorkspaceMemberCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLockedWorkspaceMembers(tx, workspaceID, userID, check); err != nil {
			return err
		}

		if err := tx.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Update("role", role).Error; err != nil {
			return err
		}

		if role == models.WorkspaceRoleOwner {
			return nil
		}
		return reassignOwnership(tx, workspaceID, userID)
	})
}

// RemoveMember removes a member and their project memberships inside the workspace.
// It refuses with a *SoleManagerError while the member is the only MANAGER of a project.
func (r *GormWorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uint64, check WorkspaceMemberCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkLockedWorkspaceMembers(tx, workspaceID, userID, check); err != nil {
			return err
		}

		orphaned, err := soleManagedProjects(tx, workspaceID, userID)
		if err != nil {
			return err
		}
		if len(orphaned) > 0 {
			return &SoleManagerError{ProjectIDs: orphaned}
		}

		projectIDs := tx.Unscoped().Model(&models.Project{}).Select("id").Where("workspace_id = ?", workspaceID)

		if err := tx.Where("user_id = ? AND project_id IN (?)", userID, projectIDs).
			Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		if err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return reassignOwnership(tx, workspaceID, userID)
	})
}

// checkLockedWorkspaceMembers runs check against the member rows of the
// workspace, locked until tx ends. userID must still be a member afterwards.
func checkLockedWorkspaceMembers(tx *gorm.DB, workspaceID, userID uint64, check WorkspaceMemberCheck) error {
	var members []models.WorkspaceMember
	if err := tx.Clauses(lockForUpdate).
		Where("workspace_id = ?", workspaceID).
		Order("joined_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return err
	}

	if check != nil {
		if err := check(members); err != nil {
			return err
		}
	}

	for _, m := range members {
		if m.UserID == userID {
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// soleManagedProjects lists the live projects of the workspace in which userID
// is the only MANAGER. The manager rows stay locked until tx ends.
func soleManagedProjects(tx *gorm.DB, workspaceID, userID uint64) ([]uint64, error) {
	liveProjects := tx.Model(&models.Project{}).Select("id").Where("workspace_id = ?", workspaceID)

	var managers []models.ProjectMember
	if err := tx.Clauses(lockForUpdate).
		Where("project_id IN (?) AND role = ?", liveProjects, models.ProjectRoleManager).
		Find(&managers).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint64]int)
	for _, m := range managers {
		counts[m.ProjectID]++
	}

	var orphaned []uint64
	for _, m := range managers {
		if m.UserID == userID && counts[m.ProjectID] == 1 {
			orphaned = append(orphaned, m.ProjectID)
		}
	}
	slices.Sort(orphaned)
	return orphaned, nil
}

// reassignOwnership moves workspaces.owner_id from formerOwnerID to the
// longest-standing remaining OWNER. It is a no-op when formerOwnerID is not
// the recorded owner.
func reassignOwnership(tx *gorm.DB, workspaceID, formerOwnerID uint64) error {
	var workspace models.Workspace
	if err := tx.Select("id", "owner_id").First(&workspace, workspaceID).Error; err != nil {
		return err
	}
	if workspace.OwnerID != formerOwnerID {
		return nil
	}

	var successor models.WorkspaceMember
	err := tx.Where("workspace_id = ? AND role = ? AND user_id <> ?", workspaceID, models.WorkspaceRoleOwner, formerOwnerID).
		Order("joined_at ASC, id ASC").
		First(&successor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSuccessorOwner
		}
		return err
	}

	return tx.Model(&models.Workspace{}).Where("id = ?", workspaceID).Update("owner_id", successor.UserID).Error
}

// CreateInvitation stores a new invitation
func (r *GormWorkspaceRepository) CreateInvitation(ctx context.Context, invitation *models.WorkspaceInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// FindInvitationByCode finds an invitation by its code
func (r *GormWorkspaceRepository) FindInvitationByCode(ctx context.Context, code string) (*models.WorkspaceInvitation, error) {
	var invitation models.WorkspaceInvitation
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListInvitations lists the pending invitations of a workspace
func (r *GormWorkspaceRepository) ListInvitations(ctx context.Context, workspaceID uint64, now time.Time) ([]models.WorkspaceInvitation, error) {
	var invitations []models.WorkspaceInvitation
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND accepted_at IS NULL AND expires_at > ?", workspaceID, now).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

// AcceptInvitation marks the invitation used and adds the member atomically
func (r *GormWorkspaceRepository) AcceptInvitation(ctx context.Context, invitation *models.WorkspaceInvitation, member *models.WorkspaceMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acceptedAt := member.JoinedAt
		if acceptedAt.IsZero() {
			acceptedAt = time.Now()
		}

		result := tx.Model(&models.WorkspaceInvitation{}).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Updates(map[string]interface{}{
				"accepted_at":    acceptedAt,
				"accepted_by_id": member.UserID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvitationUsed
		}

		member.WorkspaceID = invitation.WorkspaceID
		member.Role = invitation.Role
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}

		invitation.AcceptedAt = &acceptedAt
		invitation.AcceptedByID = &member.UserID
		return nil
	})
}

// DeleteExpiredInvitations removes unaccepted invitations that expired before now
func (r *GormWorkspaceRepository) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("accepted_at IS NULL AND expires_at <= ?", now).
		Delete(&models.WorkspaceInvitation{})
	return result.RowsAffected, result.Error
}
