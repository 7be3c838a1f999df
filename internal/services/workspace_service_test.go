package services

import (
	"time"

	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

func (suite *ServiceTestSuite) TestGetWorkspace_MemberViews() {
	workspace := suite.exampleWorkspace()

	details, err := suite.workspaces.GetWorkspace(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(details.Capabilities.IsAdmin)
	suite.Require().Len(details.Members, 3)

	views := map[uint64]MemberView{}
	for _, v := range details.Members {
		views[v.Member.UserID] = v
	}

	// alice is the only OWNER
	suite.Equal(permissions.BlockerSoleAuthority, views[suite.alice.ID].Guard.Blocker)
	suite.False(views[suite.alice.ID].Manageable)
	suite.Equal(permissions.BlockerSelf, views[suite.bob.ID].Guard.Blocker)
	suite.True(views[suite.carol.ID].Manageable)
	suite.Equal("carol", views[suite.carol.ID].Member.User.Username)

	_, err = suite.workspaces.GetWorkspace(suite.ctx, workspace.ID, suite.dave.ID)
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	caps, err := suite.workspaces.Capabilities(suite.ctx, workspace.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsMember)
	suite.False(caps.CanManageWorkspace)
}

func (suite *ServiceTestSuite) TestChangeMemberRole_Rules() {
	workspace := suite.exampleWorkspace()

	// admins cannot touch owners or hand out ownership
	_, err := suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.alice.ID, Role: models.WorkspaceRoleAdmin,
	})
	suite.requireDenied(err, "")
	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.WorkspaceRoleOwner,
	})
	suite.requireDenied(err, "")

	// nobody changes their own role
	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.alice.ID, UserID: suite.alice.ID, Role: models.WorkspaceRoleAdmin,
	})
	suite.Require().ErrorIs(err, ErrCannotModifySelf)

	// members cannot manage anyone
	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.carol.ID, UserID: suite.bob.ID, Role: models.WorkspaceRoleGuest,
	})
	suite.requireDenied(err, "")

	member, err := suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.WorkspaceRoleGuest,
	})
	suite.Require().NoError(err)
	suite.Equal(models.WorkspaceRoleGuest, member.Role)

	caps, err := suite.workspaces.Capabilities(suite.ctx, workspace.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsGuest)

	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.dave.ID, Role: models.WorkspaceRoleGuest,
	})
	suite.Require().ErrorIs(err, ErrWorkspaceMemberNotFound)

	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: "SUPERUSER",
	})
	suite.Require().ErrorIs(err, ErrInvalidWorkspaceRole)
}

func (suite *ServiceTestSuite) TestOwnershipHandOver() {
	workspace := suite.exampleWorkspace()

	// a second OWNER lifts the sole-authority block
	_, err := suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.WorkspaceRoleOwner,
	})
	suite.Require().NoError(err)

	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.alice.ID, Role: models.WorkspaceRoleMember,
	})
	suite.Require().NoError(err)

	details, err := suite.workspaces.GetWorkspace(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(suite.bob.ID, details.Workspace.OwnerID)

	// bob is now the only OWNER and cannot be removed by anyone
	suite.Require().ErrorIs(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.bob.ID, suite.bob.ID), ErrCannotModifySelf)
	suite.requireDenied(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.alice.ID, suite.bob.ID), "")
}

func (suite *ServiceTestSuite) TestRemoveMember_RevokesProjectAccess() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)

	suite.requireDenied(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.bob.ID, suite.alice.ID), "")
	suite.requireDenied(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.carol.ID, suite.bob.ID), "")

	caps, err := suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsManager)

	// bob is the only MANAGER of P
	err = suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.alice.ID, suite.bob.ID)
	suite.Require().ErrorIs(err, ErrSoleAuthority)
	var soleErr *SoleManagerError
	suite.Require().ErrorAs(err, &soleErr)
	suite.Equal([]uint64{project.ID}, soleErr.ProjectIDs)

	caps, err = suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsManager)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.ProjectRoleManager,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.alice.ID, suite.bob.ID))

	_, err = suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().ErrorIs(err, ErrProjectNotFound)
	_, err = suite.workspaces.GetWorkspace(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	details, err := suite.projects.GetProject(suite.ctx, project.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(details.Capabilities.IsManager)
	suite.Require().Len(details.Members, 1)
	suite.Equal("carol", details.Members[0].Member.User.Username)

	suite.Require().ErrorIs(suite.workspaces.RemoveMember(suite.ctx, workspace.ID, suite.alice.ID, suite.bob.ID), ErrWorkspaceMemberNotFound)
}

func (suite *ServiceTestSuite) TestWorkspaceMembers_StaleCacheCannotDemoteOwner() {
	workspace := suite.exampleWorkspace()
	_, err := suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.WorkspaceRoleOwner,
	})
	suite.Require().NoError(err)

	_, peerWorkspaces := suite.peerServices()
	details, err := peerWorkspaces.GetWorkspace(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(details.Capabilities.IsOwner)

	_, err = suite.workspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.WorkspaceRoleAdmin,
	})
	suite.Require().NoError(err)

	// the peer still resolves bob as an OWNER
	caps, err := peerWorkspaces.Capabilities(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsOwner)

	_, err = peerWorkspaces.ChangeMemberRole(suite.ctx, ChangeWorkspaceRoleInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, UserID: suite.alice.ID, Role: models.WorkspaceRoleAdmin,
	})
	suite.requireDenied(err, "admins cannot manage owners or grant ownership")
	suite.requireDenied(peerWorkspaces.RemoveMember(suite.ctx, workspace.ID, suite.bob.ID, suite.alice.ID), "admins cannot remove owners")

	caps, err = suite.workspaces.Capabilities(suite.ctx, workspace.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsOwner)
}

func (suite *ServiceTestSuite) TestUpdateAndDeleteWorkspace_OwnerOnly() {
	workspace := suite.exampleWorkspace()
	suite.exampleProject(workspace)

	name := "Renamed"
	_, err := suite.workspaces.UpdateWorkspace(suite.ctx, workspace.ID, suite.bob.ID, UpdateWorkspaceInput{Name: &name})
	suite.requireDenied(err, "")

	updated, err := suite.workspaces.UpdateWorkspace(suite.ctx, workspace.ID, suite.alice.ID, UpdateWorkspaceInput{Name: &name})
	suite.Require().NoError(err)
	suite.Equal(name, updated.Name)

	blank := "  "
	_, err = suite.workspaces.UpdateWorkspace(suite.ctx, workspace.ID, suite.alice.ID, UpdateWorkspaceInput{Name: &blank})
	suite.Require().ErrorIs(err, ErrInvalidWorkspaceName)

	suite.requireDenied(suite.workspaces.DeleteWorkspace(suite.ctx, workspace.ID, suite.bob.ID), "")
	suite.Require().NoError(suite.workspaces.DeleteWorkspace(suite.ctx, workspace.ID, suite.alice.ID))

	_, err = suite.workspaces.GetWorkspace(suite.ctx, workspace.ID, suite.alice.ID)
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	memberships, err := suite.workspaces.ListWorkspacesForUser(suite.ctx, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Empty(memberships)
}

func (suite *ServiceTestSuite) TestInvitations() {
	workspace := suite.exampleWorkspace()

	_, err := suite.workspaces.CreateInvitation(suite.ctx, CreateInvitationInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, Role: models.WorkspaceRoleOwner,
	})
	suite.requireDenied(err, "")

	_, err = suite.workspaces.CreateInvitation(suite.ctx, CreateInvitationInput{
		WorkspaceID: workspace.ID, ActorID: suite.carol.ID, Role: models.WorkspaceRoleGuest,
	})
	suite.requireDenied(err, "")

	_, err = suite.workspaces.CreateInvitation(suite.ctx, CreateInvitationInput{
		WorkspaceID: workspace.ID, ActorID: suite.dave.ID, Role: models.WorkspaceRoleGuest,
	})
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	invitation, err := suite.workspaces.CreateInvitation(suite.ctx, CreateInvitationInput{
		WorkspaceID: workspace.ID, ActorID: suite.bob.ID, Role: models.WorkspaceRoleGuest, TTL: time.Hour,
	})
	suite.Require().NoError(err)

	pending, err := suite.workspaces.ListInvitations(suite.ctx, workspace.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Len(pending, 1)
	_, err = suite.workspaces.ListInvitations(suite.ctx, workspace.ID, suite.carol.ID)
	suite.requireDenied(err, "")

	_, err = suite.workspaces.AcceptInvitation(suite.ctx, invitation.Code, suite.carol.ID)
	suite.Require().ErrorIs(err, ErrAlreadyWorkspaceMember)

	_, err = suite.workspaces.AcceptInvitation(suite.ctx, "nope-nope-nope", suite.dave.ID)
	suite.Require().ErrorIs(err, ErrInvitationNotFound)

	// two hours later the invitation is gone
	suite.workspaces.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = suite.workspaces.AcceptInvitation(suite.ctx, invitation.Code, suite.dave.ID)
	suite.Require().ErrorIs(err, ErrInvitationExpired)

	purged, err := suite.workspaces.PurgeExpiredInvitations(suite.ctx)
	suite.Require().NoError(err)
	suite.EqualValues(1, purged)
	suite.workspaces.now = time.Now

	invitation, err = suite.workspaces.CreateInvitation(suite.ctx, CreateInvitationInput{
		WorkspaceID: workspace.ID, ActorID: suite.alice.ID, Role: models.WorkspaceRoleOwner,
	})
	suite.Require().NoError(err)
	suite.WithinDuration(time.Now().Add(7*24*time.Hour), invitation.ExpiresAt, time.Minute)

	member, err := suite.workspaces.AcceptInvitation(suite.ctx, invitation.Code, suite.dave.ID)
	suite.Require().NoError(err)
	suite.Equal(models.WorkspaceRoleOwner, member.Role)

	caps, err := suite.workspaces.Capabilities(suite.ctx, workspace.ID, suite.dave.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsOwner)

	other := suite.createUser("erin")
	_, err = suite.workspaces.AcceptInvitation(suite.ctx, invitation.Code, other.ID)
	suite.Require().ErrorIs(err, ErrInvitationUsed)
}
