package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/biztrack/biztrack-server/internal/auth"
	"github.com/biztrack/biztrack-server/internal/config"
	"github.com/biztrack/biztrack-server/internal/notify"
	"github.com/biztrack/biztrack-server/internal/ratelimit"
	"github.com/biztrack/biztrack-server/internal/reporting"
	"github.com/biztrack/biztrack-server/internal/storage"
	"github.com/biztrack/biztrack-server/internal/subscription"
	"github.com/biztrack/biztrack-server/internal/tenant"
	"github.com/biztrack/biztrack-server/internal/validation"
)

type contextKey string

const claimsKey contextKey = "claims"

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	auth      *auth.JWTManager
	validator *validation.Validator
	checker   *subscription.Checker
	publisher *notify.Publisher
	pdf       *reporting.PDFGenerator
	limiter   *ratelimit.Limiter
	router    chi.Router
	server    *http.Server
}

// NewRESTServer creates a new REST API server. limiter may be nil when rate
// limiting is disabled or Redis is not configured.
func NewRESTServer(cfg *config.Config, store storage.Store, publisher *notify.Publisher, limiter *ratelimit.Limiter) *RESTServer {
	s := &RESTServer{
		config:    cfg,
		store:     store,
		auth:      auth.NewJWTManager(&cfg.JWT),
		validator: validation.NewValidator(),
		checker:   subscription.NewChecker(store),
		publisher: publisher,
		pdf:       reporting.NewPDFGenerator(),
		limiter:   limiter,
		router:    chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Usage-Warning"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.limiter != nil && s.config.RateLimit.Enabled {
		s.router.Use(s.limiter.Middleware(s.rateLimitKey))
	}

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// rateLimitKey buckets authenticated requests per account and everything
// else per client IP.
func (s *RESTServer) rateLimitKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
		if claims, err := s.auth.ValidateToken(parts[1]); err == nil {
			return "user:" + claims.UserID.String()
		}
	}
	return "ip:" + r.RemoteAddr
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authMiddleware is the authentication middleware
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Parse Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		// Validate token
		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		// Add claims to context
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom extracts the authenticated claims stored by authMiddleware.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// scopeFrom derives the tenant scope for the current request.
func scopeFrom(r *http.Request) (tenant.Scope, bool) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return tenant.Scope{}, false
	}
	return tenant.Resolve(tenant.Principal{
		ID:            claims.UserID,
		Role:          claims.Role,
		MainAccountID: claims.MainAccountID,
		BranchID:      claims.BranchID,
	}), true
}

// requireCapability gates a route subtree on one capability.
func (s *RESTServer) requireCapability(op auth.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFrom(r.Context())
			if claims == nil {
				s.respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if !auth.Can(claims.Role, op) {
				s.respondError(w, http.StatusForbidden, "operation not permitted for role "+string(claims.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
