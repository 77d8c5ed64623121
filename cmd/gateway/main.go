package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/abbosc/imajor-quiz-sub001/internal/api/http"
	"github.com/abbosc/imajor-quiz-sub001/internal/auth"
	authmw "github.com/abbosc/imajor-quiz-sub001/internal/auth/middleware"
	"github.com/abbosc/imajor-quiz-sub001/internal/bulkimport"
	"github.com/abbosc/imajor-quiz-sub001/internal/catalog"
	"github.com/abbosc/imajor-quiz-sub001/internal/config"
	"github.com/abbosc/imajor-quiz-sub001/internal/db"
	"github.com/abbosc/imajor-quiz-sub001/internal/events"
	"github.com/abbosc/imajor-quiz-sub001/internal/outbox"
	"github.com/abbosc/imajor-quiz-sub001/internal/quiz"
	rbac "github.com/abbosc/imajor-quiz-sub001/internal/rbac"
	"github.com/abbosc/imajor-quiz-sub001/internal/reconcile"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := auth.EnsureAdmin(ctx, dbh, cfg.AdminEmail, cfg.AdminPassHash); err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	quizStore := quiz.NewSQLStore(dbh, cfg.DBDriver)
	catStore := catalog.NewSQLStore(dbh, cfg.DBDriver)
	evLog := events.NewLog(dbh)
	importer := bulkimport.New(quizStore, catStore)

	// --- Deferred submissions ---
	box, err := outbox.NewFSOutbox(cfg.OutboxBasePath)
	if err != nil {
		log.Fatalf("outbox: %v", err)
	}
	reconciler := reconcile.New(box, quizStore, evLog)

	// --- Auth ---
	secret := getenvOr("AUTH_HMAC_SECRET", "supersecret-dev-key")
	authSvc := authmw.NewAuthService(secret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface: the quiz itself, results, and the catalog.
	if cfg.EnableLocalAuth {
		r.Post("/auth/signup", auth.SignupHandler(authSvc, dbh))
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}
	if cfg.EnableGuestAuth {
		r.Post("/auth/guest", auth.GuestLoginHandler(authSvc, dbh, cfg))
	}
	r.Get("/quiz/questions", api.ListActiveQuestionsHandler(quizStore))
	r.Post("/quiz/submissions", api.SubmitQuizHandler(quizStore, authSvc, evLog))
	r.Get("/quiz/results/{uniqueID}", api.GetResultHandler(quizStore))
	r.Get("/majors", api.ListMajorsHandler(catStore))
	r.Get("/careers", api.ListCareersHandler(catStore))
	r.Get("/careers/{slug}", api.GetCareerHandler(catStore))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:reconcile")).
			Post("/quiz/reconcile", api.ReconcileHandler(box, reconciler))

		pr.With(rbac.Require("submission:view-own")).
			Get("/me/submissions", api.MySubmissionsHandler(quizStore))

		pr.With(rbac.Require("career:save")).
			Get("/me/careers", api.ListSavedCareersHandler(catStore))
		pr.With(rbac.Require("career:save")).
			Put("/me/careers/{careerID}", api.SaveCareerHandler(catStore))
		pr.With(rbac.Require("career:save")).
			Delete("/me/careers/{careerID}", api.UnsaveCareerHandler(catStore))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))

		// Admin console
		pr.With(rbac.Require("question:manage")).
			Get("/admin/questions", api.ListQuestionsAdminHandler(quizStore))
		pr.With(rbac.Require("question:manage")).
			Post("/admin/questions", api.UpsertQuestionHandler(quizStore))
		pr.With(rbac.Require("question:manage")).
			Put("/admin/questions/{questionID}", api.UpsertQuestionHandler(quizStore))
		pr.With(rbac.Require("question:manage")).
			Patch("/admin/questions/{questionID}/active", api.SetQuestionActiveHandler(quizStore))
		pr.With(rbac.Require("question:manage")).
			Delete("/admin/questions/{questionID}", api.DeleteQuestionHandler(quizStore))

		pr.With(rbac.Require("import:run")).
			Post("/admin/import/questions", api.ImportQuestionsHandler(importer))
		pr.With(rbac.Require("import:run")).
			Post("/admin/import/majors", api.ImportMajorsHandler(importer))
		pr.With(rbac.Require("import:run")).
			Post("/admin/import/careers", api.ImportCareersHandler(importer))

		pr.With(rbac.Require("submission:view-all")).
			Get("/admin/submissions", api.ListSubmissionsHandler(quizStore))
		pr.With(rbac.Require("submission:view-all")).
			Get("/admin/submissions/orphans", api.OrphanSubmissionsHandler(quizStore))
		pr.With(rbac.Require("submission:view-all")).
			Get("/admin/events", api.RecentEventsHandler(evLog))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

func getenvOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
