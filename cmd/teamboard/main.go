package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"

	"github.com/dimitrije/teamboard/internal/config"
	"github.com/dimitrije/teamboard/internal/handlers"
	"github.com/dimitrije/teamboard/internal/logging"
	authmw "github.com/dimitrije/teamboard/internal/middleware"
	"github.com/dimitrije/teamboard/internal/services"
	"github.com/dimitrije/teamboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open document store")
	}
	defer closeStore()

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	emailService := services.NewEmailService(cfg.SMTP)
	userService := services.NewUserService(store, log)
	tokenService := services.NewTokenService(store)
	projectService := services.NewProjectService(store, log)
	activityService := services.NewActivityService(store, log)
	aggregationService := services.NewAggregationService(store, log)
	membershipService := services.NewMembershipService(store, projectService, userService, activityService, emailService, cfg.BaseURL, log)
	taskService := services.NewTaskService(store, activityService, aggregationService, log)
	commentService := services.NewCommentService(store, activityService, userService, log)
	shoutoutService := services.NewShoutoutService(store, log)
	moodService := services.NewMoodService(store)
	cascadeService := services.NewCascadeService(store, log)

	if !emailService.IsConfigured() {
		log.Info("smtp not configured, invite emails are disabled")
	}

	authHandler := handlers.NewAuthHandler(cfg, userService, tokenService, jwtService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	projectHandler := handlers.NewProjectHandler(userService, projectService, membershipService, cascadeService, aggregationService, activityService, log)
	taskHandler := handlers.NewTaskHandler(userService, projectService, taskService, aggregationService, log)
	socialHandler := handlers.NewSocialHandler(userService, projectService, taskService, commentService, shoutoutService, moodService, log)
	eventsHandler := handlers.NewEventsHandler(userService, projectService, membershipService, taskService, aggregationService, activityService, commentService, shoutoutService, moodService, log)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)
	auth.Post("/exchange", authHandler.ExchangeCode)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)
	protected.Get("/users/me/alerts", taskHandler.DeadlineAlerts)
	protected.Post("/users/lookup", userHandler.Lookup)

	protected.Get("/projects", projectHandler.List)
	protected.Post("/projects", projectHandler.Create)
	protected.Post("/join", projectHandler.Join)
	protected.Get("/projects/:projectId", projectHandler.Get)
	protected.Patch("/projects/:projectId", projectHandler.Update)
	protected.Delete("/projects/:projectId", projectHandler.Delete)
	protected.Post("/projects/:projectId/invites", projectHandler.Invite)
	protected.Get("/projects/:projectId/leaderboard", projectHandler.Leaderboard)
	protected.Get("/projects/:projectId/progress", projectHandler.Progress)
	protected.Get("/projects/:projectId/activity", projectHandler.Activity)

	protected.Get("/projects/:projectId/tasks", taskHandler.List)
	protected.Post("/projects/:projectId/tasks", taskHandler.Create)
	protected.Get("/projects/:projectId/export", taskHandler.ExportCSV)
	protected.Get("/tasks/:taskId", taskHandler.Get)
	protected.Patch("/tasks/:taskId/status", taskHandler.ChangeStatus)

	protected.Get("/tasks/:taskId/comments", socialHandler.ListComments)
	protected.Post("/tasks/:taskId/comments", socialHandler.AddComment)
	protected.Patch("/comments/:commentId", socialHandler.EditComment)
	protected.Delete("/comments/:commentId", socialHandler.DeleteComment)

	protected.Get("/projects/:projectId/shoutouts", socialHandler.ListShoutouts)
	protected.Post("/projects/:projectId/shoutouts", socialHandler.AddShoutout)
	protected.Patch("/shoutouts/:shoutoutId", socialHandler.UpdateShoutout)
	protected.Delete("/shoutouts/:shoutoutId", socialHandler.DeleteShoutout)
	protected.Post("/shoutouts/:shoutoutId/cheer", socialHandler.Cheer)

	protected.Get("/projects/:projectId/moods", socialHandler.ListMoods)
	protected.Post("/projects/:projectId/moods", socialHandler.SetMood)
	protected.Delete("/projects/:projectId/moods", socialHandler.DeleteMood)

	protected.Get("/events/:topic", eventsHandler.Stream)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := tokenService.CleanupExpired(ctx); err != nil {
					log.WithError(err).Warn("failed to clean up expired tokens and sign-in grants")
				}
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.WithField("addr", addr).Info("server starting")
		if err := app.Run(addr); err != nil {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
}
