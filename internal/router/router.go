package router

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/duskveil/game-api/internal/achievement"
	"github.com/duskveil/game-api/internal/analytics"
	"github.com/duskveil/game-api/internal/auth"
	"github.com/duskveil/game-api/internal/config"
	"github.com/duskveil/game-api/internal/genai"
	"github.com/duskveil/game-api/internal/grow"
	growrepo "github.com/duskveil/game-api/internal/grow/repo"
	"github.com/duskveil/game-api/internal/learn"
	learnrepo "github.com/duskveil/game-api/internal/learn/repo"
	"github.com/duskveil/game-api/internal/session"
	sessionrepo "github.com/duskveil/game-api/internal/session/repo"
	"github.com/duskveil/game-api/internal/user"
	userrepo "github.com/duskveil/game-api/internal/user/repo"
	"github.com/duskveil/game-api/internal/web"
	"github.com/duskveil/game-api/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level with the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", web.RequestID(r.Context()),
			)
		})
	}
}

// RequestIDMiddleware tags each request with a KSUID and echoes it in the
// X-Request-ID response header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(web.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows cross-origin browser clients; preflight requests are
// answered here.
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnsureSchema creates all tables in dependency order. Safe to run on every start.
func EnsureSchema(ctx context.Context, userRepo *userrepo.UserRepo, scenarioRepo *learnrepo.ScenarioRepo,
	sessions *session.Service, grows *grow.Service, stats *analytics.Service, badges *achievement.Service) error {
	if err := userRepo.EnsureTable(ctx); err != nil {
		return err
	}
	if err := scenarioRepo.EnsureTable(ctx); err != nil {
		return err
	}
	if err := sessions.Repo().EnsureTable(ctx); err != nil {
		return err
	}
	if err := grows.Repo().EnsureTable(ctx); err != nil {
		return err
	}
	if err := stats.Repo().EnsureTable(ctx); err != nil {
		return err
	}
	return badges.Repo().EnsureTable(ctx)
}

// RegisterRoutes builds the service graph, bootstraps the schema and mounts
// every HTTP handler on the standard library's http.ServeMux.
func RegisterRoutes(cfg config.Config, db *sqlx.DB, logger *zap.SugaredLogger) (http.Handler, error) {
	userRepo := userrepo.NewUserRepo(db)
	scenarioRepo := learnrepo.NewScenarioRepo(db)
	generator := genai.NewClient(cfg)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	users := user.NewService(db, userRepo)
	sessions := session.NewService(sessionrepo.NewSessionRepo(db), userRepo, scenarioRepo, logger)
	learns := learn.NewService(db, scenarioRepo, sessions)
	grows := grow.NewService(growrepo.NewGeneratedRepo(db), sessions, generator, logger)
	badges := achievement.NewService(db, logger)
	stats := analytics.NewService(db, sessions, users, badges, generator, logger)
	sessions.SetFinalizer(stats)

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := EnsureSchema(bootCtx, userRepo, scenarioRepo, sessions, grows, stats, badges); err != nil {
		return nil, err
	}

	authHandler := auth.NewHandler(users, issuer, logger)
	userHandler := user.NewHandler(db, users, logger)
	sessionHandler := session.NewHandler(sessions, logger)
	learnHandler := learn.NewHandler(learns, logger)
	growHandler := grow.NewHandler(grows, logger)
	statsHandler := analytics.NewHandler(stats, logger)
	badgeHandler := achievement.NewHandler(badges, logger)

	protected := http.NewServeMux()

	protected.HandleFunc("GET /users/me", userHandler.Me)
	protected.HandleFunc("GET /users", userHandler.List)
	protected.HandleFunc("GET /users/{id}", userHandler.Get)
	protected.HandleFunc("PATCH /users/{id}", userHandler.Update)
	protected.HandleFunc("DELETE /users/{id}", userHandler.Delete)

	protected.HandleFunc("POST /sessions", sessionHandler.Create)
	protected.HandleFunc("GET /sessions/{id}", sessionHandler.Get)
	protected.HandleFunc("PATCH /sessions/{id}/end", sessionHandler.End)
	protected.HandleFunc("GET /sessions/user/{id}", sessionHandler.ListByUser)

	protected.HandleFunc("GET /learn/scenarios", learnHandler.List)
	protected.HandleFunc("GET /learn/scenario/{sid}/start", learnHandler.Start)
	protected.HandleFunc("POST /learn/scenario/{sid}/by-path", learnHandler.ByPath)
	protected.HandleFunc("POST /learn/choice/{sid}", learnHandler.Choice)

	protected.HandleFunc("POST /grow/scenario/{sid}/generate", growHandler.Generate)
	protected.HandleFunc("GET /grow/scenario/{sid}/{depth}", growHandler.Get)
	protected.HandleFunc("POST /grow/choice/{sid}", growHandler.Choice)
	protected.HandleFunc("GET /grow/scenarios/{sid}", growHandler.List)
	protected.HandleFunc("GET /grow/status/{sid}", growHandler.Status)

	protected.HandleFunc("GET /analytics/user/{id}/stats", statsHandler.UserStats)
	protected.HandleFunc("GET /analytics/leaderboard", statsHandler.Leaderboard)
	protected.HandleFunc("GET /analytics/choices/distribution", statsHandler.ChoiceDistribution)
	protected.HandleFunc("GET /analytics/session/{sid}/summary", statsHandler.SessionSummary)
	protected.HandleFunc("GET /analytics/traits/progression", statsHandler.Progression)

	protected.HandleFunc("GET /achievements", badgeHandler.List)
	protected.HandleFunc("GET /achievements/user/{id}", badgeHandler.ForUser)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusOK, map[string]string{
			"service": "duskveil game api",
			"status":  "ok",
		})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("/", auth.Middleware(issuer, users, logger)(protected))

	handler := LoggingMiddleware(logger)(RequestIDMiddleware()(SecurityHeadersMiddleware()(CORSMiddleware()(mux))))
	return handler, nil
}
