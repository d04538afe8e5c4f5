package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"safework-backend/internal/config"
	"safework-backend/internal/cron"
	"safework-backend/internal/database"
	"safework-backend/internal/handlers"
	"safework-backend/internal/middleware"
	"safework-backend/internal/storage"
)

func main() {
	// 1. Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to PostgreSQL
	db := database.New(&cfg.DB)
	defer db.Close()

	// 3. Initialize file storage: R2 when configured, local disk otherwise
	var fileStore storage.Store
	if cfg.R2.AccountID != "" {
		fileStore, err = storage.NewR2Store(
			cfg.R2.AccountID, cfg.R2.AccessKey, cfg.R2.SecretKey,
			cfg.R2.Bucket, cfg.R2.PublicURL,
		)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
	} else {
		fileStore, err = storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize file storage: %v", err)
		}
	}

	// 4. Set up router with global middleware
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5. Initialize handlers with their dependencies
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	dashboardHandler := handlers.NewDashboardHandler(db)
	verificationHandler := handlers.NewVerificationHandler(db, fileStore)
	departmentHandler := handlers.NewDepartmentHandler(db)
	departmentUserHandler := handlers.NewDepartmentUserHandler(db)
	companyHandler := handlers.NewCompanyHandler(db)
	userHandler := handlers.NewUserHandler(db)
	formTemplateHandler := handlers.NewFormTemplateHandler(db)
	adminHandler := handlers.NewAdminHandler(db)
	uploadHandler := handlers.NewUploadHandler(fileStore)
	notificationHandler := handlers.NewNotificationHandler(db)

	// Start the daily expiry sweep
	sweeper := cron.StartSweeper(db)
	defer sweeper.Stop()

	// 6. Public routes (no authentication required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("SafeWork Compliance API"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(db.Health())
	})

	// Auth routes: public, rate-limited against brute force
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Every(12*time.Second), 5))
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Serve uploaded files (local storage only; R2 redirects to the CDN)
	r.Get("/api/files/*", uploadHandler.ServeFile)

	// 7. Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.InjectCompanyScope(db.GetPool()))

		// Current user profile
		r.Get("/api/auth/me", authHandler.GetMe)

		// File upload
		r.Post("/api/upload", uploadHandler.Upload)

		// Notifications (user-scoped, all authenticated users)
		r.Get("/api/notifications", notificationHandler.List)
		r.Put("/api/notifications/read-all", notificationHandler.MarkAllRead)
		r.Put("/api/notifications/{id}/read", notificationHandler.MarkRead)

		// Companies and the verification catalog, read-only for all roles
		r.Get("/api/companies", companyHandler.List)
		r.Get("/api/verification-types", adminHandler.ListVerificationTypes)

		// Verification summaries and submission
		r.Get("/api/verifications/users/{userId}/all", verificationHandler.ListForUser)
		r.Post("/api/verifications/requirements/{id}/submit", verificationHandler.Submit)
		r.Get("/api/verifications/{id}/document", verificationHandler.Download)

		// Departments, read-only
		r.Get("/api/departments", departmentHandler.List)
		r.Get("/api/departments/approval/{companyId}", departmentHandler.ApprovalChain)
		r.Get("/api/departments/{id}", departmentHandler.GetByID)
		r.Get("/api/departments/{id}/users", departmentUserHandler.ListAssigned)
		r.Get("/api/departments/{id}/available-users", departmentUserHandler.ListAvailable)

		// Users, read-only
		r.Get("/api/users", userHandler.List)
		r.Get("/api/users/{id}", userHandler.GetByID)

		// Form templates, read-only
		r.Get("/api/form-templates", formTemplateHandler.List)
		r.Get("/api/form-templates/categories", formTemplateHandler.Categories)
		r.Get("/api/form-templates/{id}", formTemplateHandler.GetByID)

		// Review operations require the reviewer role
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("reviewer"))

			r.Get("/api/verifications/{id}/review", verificationHandler.GetReviewContext)
			r.Post("/api/verifications/{id}/review", verificationHandler.Review)

			// Dashboard
			r.Get("/api/dashboard/metrics", dashboardHandler.GetMetrics)
			r.Get("/api/dashboard/expiring", dashboardHandler.GetExpiryAlerts)
			r.Get("/api/dashboard/company-summary", dashboardHandler.GetCompanySummary)
			r.Get("/api/dashboard/compliance", dashboardHandler.GetComplianceStats)
		})

		// Write operations restricted to admin role
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("admin"))

			// Company write operations
			r.Post("/api/companies", companyHandler.Create)
			r.Put("/api/companies/{id}", companyHandler.Update)

			// Verification catalog & requirements
			r.Post("/api/verification-types", adminHandler.CreateVerificationType)
			r.Put("/api/verification-types/{id}", adminHandler.UpdateVerificationType)
			r.Delete("/api/verification-types/{id}", adminHandler.DeleteVerificationType)
			r.Get("/api/requirements", adminHandler.ListRequirements)
			r.Post("/api/requirements", adminHandler.CreateRequirement)
			r.Delete("/api/requirements/{id}", adminHandler.DeleteRequirement)

			// Department write operations
			r.Post("/api/departments", departmentHandler.Create)
			r.Put("/api/departments/{id}", departmentHandler.Update)
			r.Delete("/api/departments/{id}", departmentHandler.Delete)
			r.Post("/api/departments/{id}/users", departmentUserHandler.Assign)
			r.Delete("/api/departments/{id}/users/{userId}", departmentUserHandler.Remove)

			// User management
			r.Put("/api/users/{id}/role", userHandler.UpdateRole)
			r.Delete("/api/users/{id}", userHandler.Deactivate)
			r.Get("/api/users/{id}/companies", userHandler.GetUserCompanies)
			r.Put("/api/users/{id}/companies", userHandler.SetUserCompanies)

			// Form template write operations
			r.Post("/api/form-templates", formTemplateHandler.Create)
			r.Put("/api/form-templates/{id}", formTemplateHandler.Update)
			r.Delete("/api/form-templates/{id}", formTemplateHandler.Delete)
			r.Put("/api/form-templates/{id}/toggle-status", formTemplateHandler.ToggleStatus)
			r.Post("/api/form-templates/{id}/clone", formTemplateHandler.Clone)

			// Activity log (admin-only)
			r.Get("/api/activity", notificationHandler.Activity)
		})

		// Destructive company removal is super_admin only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("super_admin"))
			r.Delete("/api/companies/{id}", companyHandler.Delete)
		})
	})

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-done
	log.Println("Server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
