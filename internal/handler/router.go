package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/middleware"
	"github.com/klil-music/conservatory-api/internal/models"
)

// Handlers aggregates every HTTP handler mounted by the router.
type Handlers struct {
	Auth       *AuthHandler
	Teachers   *TeacherHandler
	Students   *StudentHandler
	Slots      *SlotHandler
	Blocks     *TimeBlockHandler
	Schedule   *ScheduleHandler
	Theory     *TheoryHandler
	Orchestras *OrchestraHandler
	Users      *UserHandler
	Exports    *ExportHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. The authn
// middleware populates the request context with JWT claims; tests pass their
// own claims injector instead.
func RegisterRoutes(r *gin.Engine, prefix string, authn gin.HandlerFunc, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Download tokens are self-authenticating, no session required.
	api.GET("/exports/download", h.Exports.Download)

	auth := api.Group("", authn)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	admin := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff, models.RoleTeacher)
	ownSchedule := middleware.TeacherScope("teacherId")

	auth.POST("/auth/logout", h.Auth.Logout)
	auth.GET("/auth/me", h.Auth.Me)
	auth.POST("/auth/change-password", h.Auth.ChangePassword)

	teachers := auth.Group("/teachers")
	{
		teachers.GET("", anyRole, h.Teachers.List)
		teachers.POST("", staff, h.Teachers.Create)
		teachers.GET("/:teacherId", anyRole, h.Teachers.Get)
		teachers.PUT("/:teacherId", staff, h.Teachers.Update)
		teachers.DELETE("/:teacherId", staff, h.Teachers.Deactivate)

		teachers.GET("/:teacherId/schedule", ownSchedule, h.Schedule.TeacherWeek)
		teachers.GET("/:teacherId/schedule/export", ownSchedule, h.Exports.TeacherSchedule)
		teachers.GET("/:teacherId/availability", anyRole, h.Schedule.OpenSlots)
		teachers.GET("/:teacherId/conflicts", staff, h.Slots.Conflicts)
		teachers.GET("/:teacherId/blocks", ownSchedule, h.Blocks.ListByTeacher)
		teachers.GET("/:teacherId/blocks/utilization", ownSchedule, h.Blocks.Utilization)
	}

	students := auth.Group("/students")
	{
		students.GET("", anyRole, h.Students.List)
		students.POST("", staff, h.Students.Create)
		students.GET("/:studentId", anyRole, h.Students.Get)
		students.PUT("/:studentId", staff, h.Students.Update)
		students.DELETE("/:studentId", staff, h.Students.Deactivate)
		students.GET("/:studentId/schedule", anyRole, h.Schedule.StudentWeek)
		students.GET("/:studentId/orchestras", anyRole, h.Students.Orchestras)
	}

	slots := auth.Group("/slots")
	{
		slots.GET("", anyRole, h.Slots.List)
		slots.POST("", staff, h.Slots.Create)
		slots.GET("/:id", anyRole, h.Slots.Get)
		slots.PUT("/:id", staff, h.Slots.Update)
		slots.DELETE("/:id", staff, h.Slots.Deactivate)
		slots.POST("/:id/assign", staff, h.Slots.Assign)
		slots.DELETE("/:id/assign", staff, h.Slots.Unassign)
		slots.GET("/:id/check", staff, h.Schedule.CheckAssignment)
	}

	blocks := auth.Group("/blocks")
	{
		blocks.POST("", staff, h.Blocks.Create)
		blocks.POST("/search", anyRole, h.Blocks.SearchSlots)
		blocks.GET("/:id", anyRole, h.Blocks.Get)
		blocks.PUT("/:id", staff, h.Blocks.Update)
		blocks.DELETE("/:id", staff, h.Blocks.Delete)
		blocks.POST("/:id/lessons", staff, h.Blocks.AssignLesson)
		blocks.DELETE("/:id/lessons/:lessonId", staff, h.Blocks.RemoveLesson)
	}

	theory := auth.Group("/theory")
	{
		theory.GET("", anyRole, h.Theory.List)
		theory.POST("", staff, h.Theory.Create)
		theory.POST("/recurring", staff, h.Theory.CreateRecurring)
		theory.GET("/conflicts", staff, h.Theory.RoomConflicts)
		theory.GET("/:id", anyRole, h.Theory.Get)
		theory.PUT("/:id", staff, h.Theory.Update)
		theory.DELETE("/:id", staff, h.Theory.Delete)
	}

	orchestras := auth.Group("/orchestras")
	{
		orchestras.GET("", anyRole, h.Orchestras.List)
		orchestras.POST("", staff, h.Orchestras.Create)
		orchestras.GET("/:id", anyRole, h.Orchestras.Get)
		orchestras.PUT("/:id", staff, h.Orchestras.Update)
		orchestras.DELETE("/:id", staff, h.Orchestras.Deactivate)
		orchestras.GET("/:id/members", anyRole, h.Orchestras.Members)
		orchestras.POST("/:id/members", staff, h.Orchestras.AddMember)
		orchestras.DELETE("/:id/members/:studentId", staff, h.Orchestras.RemoveMember)
	}

	users := auth.Group("/users", admin)
	{
		users.GET("", h.Users.List)
		users.POST("", h.Users.Create)
		users.GET("/:id", h.Users.Get)
		users.PUT("/:id", h.Users.Update)
		users.DELETE("/:id", h.Users.Deactivate)
	}

	exports := auth.Group("/exports")
	{
		exports.POST("/teachers/:teacherId/schedule/jobs", ownSchedule, h.Exports.EnqueueTeacherSchedule)
		exports.GET("/jobs/:id", anyRole, h.Exports.JobStatus)
	}
}
