package services

func (suite *ServiceTestSuite) TestSignup_CreatesOwnedPersonalWorkspace() {
	user, err := suite.auth.Signup(suite.ctx, SignupInput{Username: "  frank ", Password: "password123"})
	suite.Require().NoError(err)
	suite.Equal("frank", user.Username)

	memberships, err := suite.workspaces.ListWorkspacesForUser(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.Require().Len(memberships, 1)
	suite.Equal(user.ID, memberships[0].Workspace.OwnerID)

	caps, err := suite.workspaces.Capabilities(suite.ctx, memberships[0].WorkspaceID, user.ID)
	suite.Require().NoError(err)
	suite.True(caps.IsOwner)
	suite.True(caps.CanDeleteWorkspace)

	_, err = suite.auth.Signup(suite.ctx, SignupInput{Username: "frank", Password: "password123"})
	suite.Require().ErrorIs(err, ErrUsernameTaken)
	_, err = suite.auth.Signup(suite.ctx, SignupInput{Username: "gina", Password: "short"})
	suite.Require().ErrorIs(err, ErrPasswordTooShort)
	_, err = suite.auth.Signup(suite.ctx, SignupInput{Username: " ", Password: "password123"})
	suite.Require().ErrorIs(err, ErrUsernameRequired)
}

func (suite *ServiceTestSuite) TestLogin() {
	_, err := suite.auth.Signup(suite.ctx, SignupInput{Username: "frank", Password: "password123"})
	suite.Require().NoError(err)

	user, err := suite.auth.Login(suite.ctx, LoginInput{Username: "frank", Password: "password123"})
	suite.Require().NoError(err)
	suite.Equal("frank", user.Username)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Username: "frank", Password: "wrongpassword"})
	suite.Require().ErrorIs(err, ErrInvalidCredentials)
	_, err = suite.auth.Login(suite.ctx, LoginInput{Username: "nobody", Password: "password123"})
	suite.Require().ErrorIs(err, ErrInvalidCredentials)

	got, err := suite.auth.GetUser(suite.ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal(user.ID, got.ID)
	_, err = suite.auth.GetUser(suite.ctx, 9999)
	suite.Require().ErrorIs(err, ErrUserNotFound)
}
