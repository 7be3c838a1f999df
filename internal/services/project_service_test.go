package services

import (
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

func (suite *ServiceTestSuite) TestCreateProject_WorkspaceAdminsOnly() {
	workspace := suite.exampleWorkspace()

	_, err := suite.projects.CreateProject(suite.ctx, CreateProjectInput{WorkspaceID: workspace.ID, ActorID: suite.carol.ID, Name: "Q"})
	suite.requireDenied(err, "")

	_, err = suite.projects.CreateProject(suite.ctx, CreateProjectInput{WorkspaceID: workspace.ID, ActorID: suite.dave.ID, Name: "Q"})
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	_, err = suite.projects.CreateProject(suite.ctx, CreateProjectInput{WorkspaceID: workspace.ID, ActorID: suite.bob.ID, Name: " "})
	suite.Require().ErrorIs(err, ErrInvalidProjectName)

	project := suite.exampleProject(workspace)

	caps, err := suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(models.ProjectRoleManager, caps.Role)
	suite.True(caps.IsManager)
	// bob is also a workspace ADMIN
	suite.True(caps.IsWorkspaceAdmin)

	caps, err = suite.projects.Capabilities(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Empty(caps.Role)
	suite.True(caps.HasManagerPerms)
}

func (suite *ServiceTestSuite) TestProjectVisibility() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)

	// alice reaches P through workspace ownership
	caps, err := suite.projects.Capabilities(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Empty(caps.Role)
	suite.True(caps.IsWorkspaceAdmin)
	suite.True(caps.CanDeleteProject)

	projects, err := suite.projects.ListProjects(suite.ctx, workspace.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Len(projects, 1)

	_, err = suite.projects.GetProject(suite.ctx, project.ID, suite.carol.ID)
	suite.Require().ErrorIs(err, ErrProjectNotFound)
	projects, err = suite.projects.ListProjects(suite.ctx, workspace.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.Empty(projects)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().NoError(err)

	// the write invalidated the cached snapshot
	details, err := suite.projects.GetProject(suite.ctx, project.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(details.Capabilities.IsViewer)
	suite.Len(details.Members, 2)

	projects, err = suite.projects.ListProjects(suite.ctx, workspace.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.Len(projects, 1)

	_, err = suite.projects.ListProjects(suite.ctx, workspace.ID, suite.dave.ID)
	suite.Require().ErrorIs(err, ErrWorkspaceNotFound)

	suite.Greater(testutil.ToFloat64(suite.metrics.AccessCacheHitsTotal.WithLabelValues(cacheKindWorkspace)), 0.0)
}

func (suite *ServiceTestSuite) TestProjectMembers_SoleManagerGuard() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)

	// alice escalates to manager rights but bob is the only MANAGER
	_, err := suite.projects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().ErrorIs(err, ErrSoleAuthority)
	suite.Require().ErrorIs(suite.projects.RemoveMember(suite.ctx, project.ID, suite.alice.ID, suite.bob.ID), ErrSoleAuthority)

	_, err = suite.projects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.bob.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().ErrorIs(err, ErrCannotModifySelf)

	details, err := suite.projects.GetProject(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Require().Len(details.Members, 1)
	suite.Equal(permissions.BlockerSoleAuthority, details.Members[0].Guard.Blocker)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.alice.ID, Role: models.ProjectRoleManager,
	})
	suite.Require().NoError(err)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.alice.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().ErrorIs(err, ErrAlreadyProjectMember)

	member, err := suite.projects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().NoError(err)
	suite.Equal(models.ProjectRoleViewer, member.Role)

	// bob kept workspace ADMIN, so he still escalates on P
	caps, err := suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsViewer)
	suite.True(caps.HasManagerPerms)
}

func (suite *ServiceTestSuite) TestProjectMembers_StaleCacheCannotDemoteLastManager() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)
	_, err := suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.ProjectRoleManager,
	})
	suite.Require().NoError(err)

	peerProjects, _ := suite.peerServices()
	details, err := peerProjects.GetProject(suite.ctx, project.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(details.Capabilities.IsManager)

	_, err = suite.projects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().NoError(err)

	// the peer still holds the snapshot with two managers
	caps, err := peerProjects.Capabilities(suite.ctx, project.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsManager)

	_, err = peerProjects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.carol.ID, UserID: suite.bob.ID, Role: models.ProjectRoleViewer,
	})
	suite.requireDenied(err, "only project managers can change member roles")
	suite.requireDenied(peerProjects.RemoveMember(suite.ctx, project.ID, suite.carol.ID, suite.bob.ID), "")

	caps, err = suite.projects.Capabilities(suite.ctx, project.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsManager)
}

func (suite *ServiceTestSuite) TestProjectMembers_GuardCountsCommittedManagers() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)
	_, err := suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.carol.ID, Role: models.ProjectRoleManager,
	})
	suite.Require().NoError(err)

	// with two managers cached, the peer offers to demote bob
	peerProjects, _ := suite.peerServices()
	details, err := peerProjects.GetProject(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().NoError(err)
	for _, view := range details.Members {
		suite.True(view.Manageable, "user %d", view.Member.UserID)
	}

	_, err = suite.projects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.carol.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().NoError(err)

	_, err = peerProjects.ChangeMemberRole(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.alice.ID, UserID: suite.bob.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().ErrorIs(err, ErrSoleAuthority)
	suite.Require().ErrorIs(peerProjects.RemoveMember(suite.ctx, project.ID, suite.alice.ID, suite.bob.ID), ErrSoleAuthority)

	details, err = suite.projects.GetProject(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().NoError(err)
	managers := 0
	for _, view := range details.Members {
		if view.Member.Role == models.ProjectRoleManager {
			managers++
		}
	}
	suite.Equal(1, managers)
}

func (suite *ServiceTestSuite) TestProjectMembers_Validation() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)
	suite.invite(workspace.ID, suite.alice, suite.dave, models.WorkspaceRoleGuest)

	outsider := suite.createUser("erin")
	_, err := suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: outsider.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().ErrorIs(err, ErrNotWorkspaceMember)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.dave.ID, Role: "OWNER",
	})
	suite.Require().ErrorIs(err, ErrInvalidProjectRole)

	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.dave.ID, Role: models.ProjectRoleCollaborator,
	})
	suite.Require().NoError(err)

	// collaborators cannot manage members
	_, err = suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.dave.ID, UserID: suite.carol.ID, Role: models.ProjectRoleViewer,
	})
	suite.requireDenied(err, "")
	suite.requireDenied(suite.projects.DeleteProject(suite.ctx, project.ID, suite.dave.ID), "")

	suite.Require().ErrorIs(suite.projects.RemoveMember(suite.ctx, project.ID, suite.bob.ID, suite.carol.ID), ErrProjectMemberNotFound)
	suite.Require().NoError(suite.projects.RemoveMember(suite.ctx, project.ID, suite.bob.ID, suite.dave.ID))

	_, err = suite.projects.GetProject(suite.ctx, project.ID, suite.dave.ID)
	suite.Require().ErrorIs(err, ErrProjectNotFound)

	suite.Require().NoError(suite.projects.DeleteProject(suite.ctx, project.ID, suite.bob.ID))
	_, err = suite.projects.GetProject(suite.ctx, project.ID, suite.alice.ID)
	suite.Require().ErrorIs(err, ErrProjectNotFound)
}
