package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&WorkspaceInvitation{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&TaskAssignment{},
		&Comment{},
	}
}
