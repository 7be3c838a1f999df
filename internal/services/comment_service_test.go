package services

import (
	"strings"

	"github.com/yukikurage/workspace-task-api/internal/constants"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

func (suite *ServiceTestSuite) TestComments() {
	workspace := suite.exampleWorkspace()
	project := suite.exampleProject(workspace)
	task := suite.exampleTask(project)
	suite.invite(workspace.ID, suite.alice, suite.dave, models.WorkspaceRoleGuest)

	_, err := suite.projects.AddMember(suite.ctx, ProjectMemberInput{
		ProjectID: project.ID, ActorID: suite.bob.ID, UserID: suite.dave.ID, Role: models.ProjectRoleViewer,
	})
	suite.Require().NoError(err)

	// viewers may comment
	daveComment, err := suite.comments.AddComment(suite.ctx, task.ID, suite.dave.ID, "  looks good  ")
	suite.Require().NoError(err)
	suite.Equal("looks good", daveComment.Body)
	suite.Equal("dave", daveComment.Author.Username)

	bobComment, err := suite.comments.AddComment(suite.ctx, task.ID, suite.bob.ID, "thanks")
	suite.Require().NoError(err)

	// carol created T1 but no longer holds a project role
	_, err = suite.comments.AddComment(suite.ctx, task.ID, suite.carol.ID, "hello?")
	suite.requireDenied(err, permissions.ReasonNoProjectAccess)
	_, err = suite.comments.ListComments(suite.ctx, task.ID, suite.carol.ID)
	suite.requireDenied(err, permissions.ReasonNoProjectAccess)

	_, err = suite.comments.AddComment(suite.ctx, task.ID, suite.bob.ID, " ")
	suite.Require().ErrorIs(err, ErrCommentEmpty)
	_, err = suite.comments.AddComment(suite.ctx, task.ID, suite.bob.ID, strings.Repeat("a", constants.MaxCommentLength+1))
	suite.Require().ErrorIs(err, ErrCommentTooLong)

	comments, err := suite.comments.ListComments(suite.ctx, task.ID, suite.alice.ID)
	suite.Require().NoError(err)
	suite.Len(comments, 2)
	suite.Equal(daveComment.ID, comments[0].ID)

	suite.Require().ErrorIs(suite.comments.DeleteComment(suite.ctx, task.ID, bobComment.ID, suite.alice.ID), ErrNotCommentOwner)
	suite.Require().ErrorIs(suite.comments.DeleteComment(suite.ctx, task.ID+1, bobComment.ID, suite.bob.ID), ErrTaskNotFound)
	suite.Require().NoError(suite.comments.DeleteComment(suite.ctx, task.ID, bobComment.ID, suite.bob.ID))
	suite.Require().ErrorIs(suite.comments.DeleteComment(suite.ctx, task.ID, bobComment.ID, suite.bob.ID), ErrCommentNotFound)

	comments, err = suite.comments.ListComments(suite.ctx, task.ID, suite.dave.ID)
	suite.Require().NoError(err)
	suite.Len(comments, 1)
}
