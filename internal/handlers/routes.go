package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-task-api/internal/middleware"
	"github.com/yukikurage/workspace-task-api/internal/services"
)

// Services bundles what the API routes need.
type Services struct {
	Auth       *services.AuthService
	Workspaces *services.WorkspaceService
	Projects   *services.ProjectService
	Tasks      *services.TaskService
	Comments   *services.CommentService
}

// RegisterRoutes mounts every API endpoint on api. Session middleware must already be installed.
func RegisterRoutes(api *gin.RouterGroup, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	workspaceHandler := NewWorkspaceHandler(svc.Workspaces)
	projectHandler := NewProjectHandler(svc.Projects)
	taskHandler := NewTaskHandler(svc.Tasks)
	commentHandler := NewCommentHandler(svc.Comments)

	workspaceAccess := middleware.RequireWorkspaceAccess(svc.Workspaces)
	taskAccess := middleware.RequireTaskAccess(svc.Tasks)

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
	}

	// Workspace routes (protected)
	workspaces := api.Group("/workspaces")
	workspaces.Use(middleware.RequireAuth())
	{
		workspaces.POST("", workspaceHandler.CreateWorkspace)
		workspaces.GET("", workspaceHandler.ListWorkspaces)
		workspaces.POST("/join", workspaceHandler.JoinWorkspace)
		workspaces.GET("/:id", workspaceAccess, workspaceHandler.GetWorkspace)
		workspaces.GET("/:id/permissions", workspaceAccess, workspaceHandler.GetPermissions)
		workspaces.PATCH("/:id", workspaceAccess, workspaceHandler.UpdateWorkspace)
		workspaces.DELETE("/:id", workspaceAccess, middleware.RequireWorkspaceOwner(), workspaceHandler.DeleteWorkspace)
		workspaces.POST("/:id/invitations", workspaceAccess, workspaceHandler.CreateInvitation)
		workspaces.GET("/:id/invitations", workspaceAccess, workspaceHandler.ListInvitations)
		workspaces.PATCH("/:id/members/:user_id", workspaceAccess, workspaceHandler.ChangeMemberRole)
		workspaces.DELETE("/:id/members/:user_id", workspaceAccess, workspaceHandler.RemoveMember)
		workspaces.GET("/:id/projects", workspaceAccess, projectHandler.ListProjects)
		workspaces.POST("/:id/projects", workspaceAccess, projectHandler.CreateProject)
	}

	// Project routes (protected)
	projects := api.Group("/projects")
	projects.Use(middleware.RequireAuth())
	{
		projects.GET("/:id", projectHandler.GetProject)
		projects.GET("/:id/permissions", projectHandler.GetPermissions)
		projects.PATCH("/:id", projectHandler.UpdateProject)
		projects.DELETE("/:id", projectHandler.DeleteProject)
		projects.POST("/:id/members", projectHandler.AddMember)
		projects.PATCH("/:id/members/:user_id", projectHandler.ChangeMemberRole)
		projects.DELETE("/:id/members/:user_id", projectHandler.RemoveMember)
	}

	// Task routes (protected)
	tasks := api.Group("/tasks")
	tasks.Use(middleware.RequireAuth())
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskAccess, taskHandler.GetTask)
		tasks.GET("/:id/permissions", taskAccess, taskHandler.GetPermissions)
		tasks.PATCH("/:id", taskAccess, taskHandler.UpdateTask)
		tasks.PATCH("/:id/status", taskAccess, taskHandler.ChangeStatus)
		tasks.DELETE("/:id", taskAccess, taskHandler.DeleteTask)
		tasks.POST("/:id/assign", taskAccess, taskHandler.AssignTask)
		tasks.POST("/:id/unassign", taskAccess, taskHandler.UnassignTask)
		tasks.GET("/:id/comments", taskAccess, commentHandler.ListComments)
		tasks.POST("/:id/comments", taskAccess, commentHandler.AddComment)
		tasks.DELETE("/:id/comments/:comment_id", taskAccess, commentHandler.DeleteComment)
	}
}
