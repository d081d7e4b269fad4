package router

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/auth"
	"github.com/monocle-dev/taskflow/internal/handlers"
	"github.com/monocle-dev/taskflow/internal/middleware"
	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/realtime"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/monocle-dev/taskflow/internal/types"
	"gorm.io/gorm"
)

type Deps struct {
	DB           *gorm.DB
	Log          *slog.Logger
	Tokens       *auth.Tokens
	Hub          *realtime.Hub // optional, built from Origins when nil
	Origins      []string
	CookieDomain string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()

	if len(d.Origins) == 0 {
		d.Origins = types.DefaultOrigins
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	hub := d.Hub
	if hub == nil {
		hub = realtime.NewHub(d.Origins, d.Log)
	}

	companySvc := services.NewCompanyService(d.DB, d.Log)
	taskSvc := services.NewTaskService(d.DB, d.Log, hub)
	userSvc := services.NewUserService(d.DB, d.Log)

	authH := handlers.NewAuthHandler(userSvc, d.Tokens, d.CookieDomain, d.Log)
	companyH := handlers.NewCompanyHandler(companySvc, d.Log)
	taskH := handlers.NewTaskHandler(taskSvc, d.Log)
	userH := handlers.NewUserHandler(userSvc, d.Log)
	healthH := handlers.NewHealthHandler(d.DB, d.Log)
	wsH := handlers.NewWebSocketHandler(hub, d.Log)

	authed := middleware.AuthMiddleware(d.Tokens, d.DB, d.Log)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	api := r.Group("/api")
	{
		api.GET("/health", healthH.Check)
		api.GET("/ws/:company_id", authed, wsH.Serve)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authH.Register)
			authGroup.POST("/login", authH.Login)
			authGroup.POST("/logout", authH.Logout)
			authGroup.GET("/me", authed, authH.Me)
		}

		companies := api.Group("/companies", authed, managers)
		{
			companies.POST("", companyH.Create)
			companies.GET("", companyH.List)
			companies.GET("/:id", companyH.Get)
			companies.PUT("/:id", companyH.Update)
			companies.DELETE("/:id", companyH.Delete)
			companies.GET("/:id/stats", companyH.Stats)
		}

		tasks := api.Group("/tasks", authed)
		{
			tasks.POST("", managers, taskH.Create)
			tasks.GET("", taskH.List)
			tasks.GET("/:id", taskH.Get)
			tasks.PUT("/:id", taskH.Update)
			tasks.DELETE("/:id", taskH.Delete)

			// Sub-task endpoints
			tasks.POST("/:id/days/:date/subtasks", taskH.AddSubTask)
			tasks.PUT("/:id/subtasks/:subtask_id", taskH.UpdateSubTask)
			tasks.DELETE("/:id/subtasks/:subtask_id", taskH.DeleteSubTask)
		}

		users := api.Group("/users", authed)
		{
			users.POST("", managers, userH.Create)
			users.GET("", managers, userH.List)
			users.GET("/:id", userH.Get)
			users.PUT("/:id", userH.Update)
			users.DELETE("/:id", userH.Delete)
		}
	}

	return r
}
