package routes

import (
	"database/sql"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/config"
	"github.com/LovationAdmin/dayclap-api/handlers"
	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// Services is built once at startup and shared by every route group.
type Services struct {
	DB          *sql.DB
	Config      *config.Config
	Users       *services.UserService
	Auth        *services.AuthService
	Companies   *services.CompanyService
	Events      *services.EventService
	Tasks       *services.TaskService
	Invitations *services.InvitationService
	Email       *services.EmailService
	Push        *services.PushService
	Notifier    *services.Notifier
	Scheduler   *services.ReminderScheduler
	WS          *handlers.WSHandler
}

func NewServices(db *sql.DB, cfg *config.Config) *Services {
	users := services.NewUserService(db)
	email := services.NewEmailService(db, utils.MailConfig{
		APIKey:   cfg.ResendAPIKey,
		Endpoint: cfg.EmailAPIEndpoint,
		From:     cfg.FromEmail,
	}, cfg.FrontendURL)
	push := services.NewPushService(db, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDEmail)

	return &Services{
		DB:          db,
		Config:      cfg,
		Users:       users,
		Auth:        services.NewAuthService(db, users),
		Companies:   services.NewCompanyService(db),
		Events:      services.NewEventService(db),
		Tasks:       services.NewTaskService(db),
		Invitations: services.NewInvitationService(db, cfg.InviteCooldown),
		Email:       email,
		Push:        push,
		Notifier:    services.NewNotifier(db, email, push),
		Scheduler:   services.NewReminderScheduler(db, email),
		WS:          handlers.NewWSHandler(),
	}
}

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, s *Services) {
	authHandler := &handlers.AuthHandler{Auth: s.Auth, Notifier: s.Notifier}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/refresh", authHandler.RefreshToken)
	rg.POST("/auth/logout", authHandler.Logout)

	notificationHandler := &handlers.NotificationHandler{Push: s.Push, Notifier: s.Notifier}
	rg.GET("/notifications/vapid-public-key", notificationHandler.GetVAPIDPublicKey)
}

// SetupWSRoutes authenticates with ?token= since browsers cannot set
// headers on a WebSocket upgrade.
func SetupWSRoutes(rg *gin.RouterGroup, s *Services) {
	rg.GET("/ws/companies/:id",
		middleware.WSAuthMiddleware(),
		middleware.LoadSession(s.Users),
		s.WS.HandleWS,
	)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, s *Services) {
	userHandler := &handlers.UserHandler{Users: s.Users, WS: s.WS}

	rg.GET("/user/profile", userHandler.GetProfile)
	rg.PUT("/user/profile", userHandler.UpdateProfile)
	rg.PUT("/user/notifications", userHandler.UpdateNotifications)
	rg.PUT("/user/current-company", userHandler.SetCurrentCompany)
	rg.POST("/user/password", userHandler.ChangePassword)
	rg.POST("/user/2fa/setup", userHandler.Setup2FA)
	rg.POST("/user/2fa/verify", userHandler.Verify2FA)
	rg.POST("/user/2fa/disable", userHandler.Disable2FA)
	rg.GET("/user/export", userHandler.ExportData)
	rg.DELETE("/user/account", userHandler.DeleteAccount)
}

// SetupCompanyRoutes sets up companies, members and company-scoped views.
func SetupCompanyRoutes(rg *gin.RouterGroup, s *Services) {
	companyHandler := &handlers.CompanyHandler{Companies: s.Companies, WS: s.WS}
	eventHandler := &handlers.EventHandler{
		Events:    s.Events,
		Tasks:     s.Tasks,
		Companies: s.Companies,
		Notifier:  s.Notifier,
		WS:        s.WS,
	}
	taskHandler := &handlers.TaskHandler{Tasks: s.Tasks, WS: s.WS}
	overviewHandler := &handlers.OverviewHandler{Events: s.Events, Tasks: s.Tasks}

	rg.GET("/companies", companyHandler.GetCompanies)
	rg.POST("/companies", companyHandler.CreateCompany)
	rg.GET("/companies/:id", companyHandler.GetCompany)
	rg.PUT("/companies/:id", companyHandler.UpdateCompany)
	rg.DELETE("/companies/:id", companyHandler.DeleteCompany)

	rg.GET("/companies/:id/members", companyHandler.GetMembers)
	rg.POST("/companies/:id/leave", companyHandler.LeaveCompany)
	rg.DELETE("/companies/:id/members/:userId", companyHandler.RemoveMember)

	rg.GET("/companies/:id/events", eventHandler.GetEvents)
	rg.GET("/companies/:id/events/upcoming", eventHandler.GetUpcomingEvents)
	rg.GET("/companies/:id/calendar/:date", eventHandler.GetDayItems)
	rg.GET("/companies/:id/calendar.ics", eventHandler.ExportCalendar)
	rg.POST("/companies/:id/calendar/import", eventHandler.ImportCalendar)
	rg.GET("/companies/:id/search", eventHandler.Search)
	rg.GET("/companies/:id/tasks", taskHandler.GetTasks)
	rg.GET("/companies/:id/overview", overviewHandler.GetOverview)
}

// SetupEventRoutes sets up event routes. Events are addressed by id; the
// company comes from the body or the caller's current company.
func SetupEventRoutes(rg *gin.RouterGroup, s *Services) {
	eventHandler := &handlers.EventHandler{
		Events:    s.Events,
		Tasks:     s.Tasks,
		Companies: s.Companies,
		Notifier:  s.Notifier,
		WS:        s.WS,
	}

	rg.GET("/events", eventHandler.GetEvents)
	rg.GET("/events/upcoming", eventHandler.GetUpcomingEvents)
	rg.POST("/events", eventHandler.CreateEvent)
	rg.GET("/events/:eventId", eventHandler.GetEvent)
	rg.PUT("/events/:eventId", eventHandler.UpdateEvent)
	rg.DELETE("/events/:eventId", eventHandler.DeleteEvent)
	rg.PATCH("/events/:eventId/tasks/:taskId", eventHandler.ToggleEventTask)
}

// SetupTaskRoutes sets up standalone task routes.
func SetupTaskRoutes(rg *gin.RouterGroup, s *Services) {
	taskHandler := &handlers.TaskHandler{Tasks: s.Tasks, WS: s.WS}
	overviewHandler := &handlers.OverviewHandler{Events: s.Events, Tasks: s.Tasks}

	rg.GET("/tasks", taskHandler.GetTasks)
	rg.POST("/tasks", taskHandler.CreateTask)
	rg.GET("/tasks/:taskId", taskHandler.GetTask)
	rg.PUT("/tasks/:taskId", taskHandler.UpdateTask)
	rg.PATCH("/tasks/:taskId/toggle", taskHandler.ToggleTask)
	rg.PATCH("/tasks/:taskId/dismiss", taskHandler.DismissTask)
	rg.DELETE("/tasks/:taskId", taskHandler.DeleteTask)

	rg.GET("/overview", overviewHandler.GetOverview)
}

// SetupInvitationRoutes sets up invitation routes.
func SetupInvitationRoutes(rg *gin.RouterGroup, s *Services) {
	invitationHandler := &handlers.InvitationHandler{
		Invitations: s.Invitations,
		Notifier:    s.Notifier,
		WS:          s.WS,
	}

	rg.GET("/invitations", invitationHandler.GetInvitations)
	rg.POST("/invitations", invitationHandler.SendInvitation)
	rg.PUT("/invitations/:invitationId", invitationHandler.RespondToInvitation)
	rg.DELETE("/invitations/:invitationId", invitationHandler.CancelInvitation)
}

// SetupNotificationRoutes sets up push subscription and explicit notices.
func SetupNotificationRoutes(rg *gin.RouterGroup, s *Services) {
	notificationHandler := &handlers.NotificationHandler{Push: s.Push, Notifier: s.Notifier}

	rg.POST("/notifications/subscribe", notificationHandler.Subscribe)
	rg.DELETE("/notifications/subscribe", notificationHandler.Unsubscribe)
	rg.POST("/notifications/task-assigned", notificationHandler.TaskAssigned)
}

// SetupAdminRoutes sets up routes restricted to ADMIN_EMAILS.
func SetupAdminRoutes(rg *gin.RouterGroup, s *Services) {
	adminHandler := &handlers.AdminHandler{
		DB:        s.DB,
		Email:     s.Email,
		Push:      s.Push,
		Scheduler: s.Scheduler,
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.RequireAdmin(s.Config))
	{
		admin.GET("/scheduler", adminHandler.GetSchedulerStatus)
		admin.POST("/scheduler", adminHandler.ControlScheduler)
		admin.POST("/scheduler/run", adminHandler.RunReminders)

		admin.GET("/email-settings", adminHandler.GetEmailSettings)
		admin.PUT("/email-settings", adminHandler.UpdateEmailSettings)

		admin.GET("/email-templates", adminHandler.GetTemplates)
		admin.POST("/email-templates", adminHandler.CreateTemplate)
		admin.GET("/email-templates/:name", adminHandler.GetTemplate)
		admin.PUT("/email-templates/:name", adminHandler.UpdateTemplate)
		admin.DELETE("/email-templates/:name", adminHandler.DeleteTemplate)

		admin.POST("/test-email", adminHandler.SendTestEmail)
		admin.POST("/test-push", adminHandler.SendTestPush)
		admin.POST("/migrate-events", adminHandler.MigrateEvents)
	}
}
