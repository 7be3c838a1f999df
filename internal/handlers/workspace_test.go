package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/workspace-task-api/internal/dto"
	apierrors "github.com/yukikurage/workspace-task-api/internal/errors"
	"github.com/yukikurage/workspace-task-api/internal/models"
	"github.com/yukikurage/workspace-task-api/internal/permissions"
)

func (suite *HandlerTestSuite) TestGetWorkspace_MemberViews() {
	workspaceID := suite.createWorkspace()

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/workspaces/%d", workspaceID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.WorkspaceDetailDTO
	suite.decode(w, &response)
	suite.Equal(models.WorkspaceRoleAdmin, response.YourRole)
	suite.True(response.Permissions.CanInviteMembers)
	suite.False(response.Permissions.CanDeleteWorkspace)
	suite.Require().Len(response.Members, 3)

	byUser := make(map[uint64]dto.WorkspaceMemberDTO)
	for _, m := range response.Members {
		byUser[m.User.ID] = m
	}
	// bob cannot touch the only owner, nor himself
	suite.False(byUser[suite.alice.ID].CanManage)
	suite.Equal(permissions.BlockerSoleAuthority, byUser[suite.alice.ID].Protection.Blocker)
	suite.Equal(permissions.BlockerSelf, byUser[suite.bob.ID].Protection.Blocker)
	suite.True(byUser[suite.carol.ID].CanManage)
}

func (suite *HandlerTestSuite) TestGetWorkspace_NonMemberSeesNotFound() {
	w := suite.request(http.MethodPost, "/api/workspaces", suite.alice, map[string]string{"name": "Private"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var workspace dto.WorkspaceDTO
	suite.decode(w, &workspace)

	for _, path := range []string{
		fmt.Sprintf("/api/workspaces/%d", workspace.ID),
		fmt.Sprintf("/api/workspaces/%d/permissions", workspace.ID),
		fmt.Sprintf("/api/workspaces/%d/projects", workspace.ID),
		"/api/workspaces/999999",
	} {
		w = suite.request(http.MethodGet, path, suite.carol, nil)
		suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
	}

	w = suite.request(http.MethodGet, "/api/workspaces/abc", suite.carol, nil)
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (suite *HandlerTestSuite) TestWorkspacePermissions() {
	workspaceID := suite.createWorkspace()

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/workspaces/%d/permissions", workspaceID), suite.carol, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var caps permissions.WorkspaceCapabilities
	suite.decode(w, &caps)
	suite.True(caps.IsMember)
	suite.True(caps.HasAccess)
	suite.True(caps.CanViewContent)
	suite.False(caps.CanManageWorkspace)
	suite.False(caps.CanCreateProjects)
}

func (suite *HandlerTestSuite) TestOwnerOnlySettings() {
	workspaceID := suite.createWorkspace()
	path := fmt.Sprintf("/api/workspaces/%d", workspaceID)

	w := suite.request(http.MethodPatch, path, suite.bob, map[string]string{"name": "Renamed"})
	apiErr := suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)
	suite.NotEmpty(apiErr.Message)

	w = suite.request(http.MethodDelete, path, suite.bob, nil)
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	w = suite.request(http.MethodPatch, path, suite.alice, map[string]string{"name": "Renamed"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var workspace dto.WorkspaceDTO
	suite.decode(w, &workspace)
	suite.Equal("Renamed", workspace.Name)

	w = suite.request(http.MethodDelete, path, suite.alice, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, path, suite.alice, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestChangeMemberRole() {
	workspaceID := suite.createWorkspace()
	memberPath := func(userID uint64) string {
		return fmt.Sprintf("/api/workspaces/%d/members/%d", workspaceID, userID)
	}

	// an admin cannot demote the owner
	w := suite.request(http.MethodPatch, memberPath(suite.alice.ID), suite.bob, map[string]string{"role": "MEMBER"})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	// nobody can change their own role
	w = suite.request(http.MethodPatch, memberPath(suite.alice.ID), suite.alice, map[string]string{"role": "ADMIN"})
	suite.requireError(w, http.StatusConflict, apierrors.ErrCodeInvalidOperation)

	w = suite.request(http.MethodPatch, memberPath(suite.carol.ID), suite.bob, map[string]string{"role": "GUEST"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/workspaces/%d/permissions", workspaceID), suite.carol, nil)
	var caps permissions.WorkspaceCapabilities
	suite.decode(w, &caps)
	suite.True(caps.IsGuest)

	w = suite.request(http.MethodPatch, memberPath(suite.carol.ID), suite.bob, map[string]string{"role": "SUPERUSER"})
	suite.requireError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput)
}

func (suite *HandlerTestSuite) TestRemoveMember() {
	workspaceID := suite.createWorkspace()

	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/workspaces/%d/members/%d", workspaceID, suite.bob.ID), suite.bob, nil)
	suite.requireError(w, http.StatusConflict, apierrors.ErrCodeInvalidOperation)

	w = suite.request(http.MethodDelete, fmt.Sprintf("/api/workspaces/%d/members/%d", workspaceID, suite.carol.ID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/workspaces/%d", workspaceID), suite.carol, nil)
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestRemoveMember_OnlyProjectManager() {
	workspaceID := suite.createWorkspace()
	projectID := suite.createProject(workspaceID)

	w := suite.request(http.MethodDelete, fmt.Sprintf("/api/workspaces/%d/members/%d", workspaceID, suite.bob.ID), suite.alice, nil)
	apiErr := suite.requireError(w, http.StatusConflict, apierrors.ErrCodeInvalidOperation)
	details, ok := apiErr.Details.(map[string]interface{})
	suite.Require().True(ok, w.Body.String())
	suite.Equal([]interface{}{float64(projectID)}, details["project_ids"])

	w = suite.request(http.MethodGet, fmt.Sprintf("/api/workspaces/%d", workspaceID), suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *HandlerTestSuite) TestInvitations() {
	workspaceID := suite.createWorkspace()
	invitationsPath := fmt.Sprintf("/api/workspaces/%d/invitations", workspaceID)

	// admins cannot hand out the owner role
	w := suite.request(http.MethodPost, invitationsPath, suite.bob, map[string]string{"role": "OWNER"})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	// members cannot invite at all
	w = suite.request(http.MethodPost, invitationsPath, suite.carol, map[string]string{"role": "GUEST"})
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	w = suite.request(http.MethodPost, invitationsPath, suite.bob, map[string]any{"role": "GUEST", "expires_in_hours": 2})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var invitation dto.InvitationDTO
	suite.decode(w, &invitation)
	suite.NotEmpty(invitation.Code)
	suite.Equal(models.WorkspaceRoleGuest, invitation.Role)

	w = suite.request(http.MethodGet, invitationsPath, suite.bob, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var list struct {
		Invitations []dto.InvitationDTO `json:"invitations"`
	}
	suite.decode(w, &list)
	suite.Require().Len(list.Invitations, 1)
	suite.Equal(invitation.Code, list.Invitations[0].Code)

	w = suite.request(http.MethodGet, invitationsPath, suite.carol, nil)
	suite.requireError(w, http.StatusForbidden, apierrors.ErrCodeInsufficientPermissions)

	// already a member
	w = suite.request(http.MethodPost, "/api/workspaces/join", suite.carol, map[string]string{"code": invitation.Code})
	suite.requireError(w, http.StatusConflict, apierrors.ErrCodeConflict)

	w = suite.request(http.MethodPost, "/api/workspaces/join", suite.carol, map[string]string{"code": "nope-nope-nope"})
	suite.requireError(w, http.StatusNotFound, apierrors.ErrCodeNotFound)
}

func (suite *HandlerTestSuite) TestInvitationSingleUse() {
	workspaceID := suite.createWorkspace()
	dave := suite.signupAndLogin("dave")
	erin := suite.signupAndLogin("erin")

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/workspaces/%d/invitations", workspaceID), suite.alice, map[string]string{"role": "MEMBER"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	var invitation dto.InvitationDTO
	suite.decode(w, &invitation)

	w = suite.request(http.MethodPost, "/api/workspaces/join", dave, map[string]string{"code": invitation.Code})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/workspaces/join", erin, map[string]string{"code": invitation.Code})
	suite.requireError(w, http.StatusGone, apierrors.ErrCodeGone)
}
