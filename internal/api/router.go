package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/taskd/internal/api/middleware"
	"github.com/phrazzld/taskd/internal/platform/metrics"
	"github.com/phrazzld/taskd/internal/service"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
)

// RouterDeps holds everything the HTTP surface needs. Metrics may be nil.
type RouterDeps struct {
	UserService       service.UserService
	TaskService       service.TaskService
	UserStore         store.UserStore
	JWTService        auth.JWTService
	Metrics           *metrics.Metrics
	AuthRatePerMinute int
	MaxAvatarBytes    int64
	Logger            *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(deps.Metrics.Middleware)

	users := NewUserHandler(deps.UserService, deps.MaxAvatarBytes)
	tasks := NewTaskHandler(deps.TaskService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.JWTService, deps.UserStore, deps.Metrics)
	limiter := apiMiddleware.NewRateLimiter(deps.AuthRatePerMinute, deps.Metrics)

	// Public account endpoints
	r.With(limiter.Limit).Post("/users", users.Register)
	r.With(limiter.Limit).Post("/users/login", users.Login)
	r.Get("/users/{id}/avatar", users.GetAvatar)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/users/logout", users.Logout)
		r.Post("/users/logoutAll", users.LogoutAll)
		r.Get("/users/me", users.Me)
		r.Patch("/users/me", users.UpdateMe)
		r.Delete("/users/me", users.DeleteMe)
		r.Post("/users/me/avatar", users.UploadAvatar)
		r.Delete("/users/me/avatar", users.DeleteAvatar)

		r.Post("/tasks", tasks.Create)
		r.Get("/tasks", tasks.List)
		r.Get("/tasks/{id}", tasks.Get)
		r.Patch("/tasks/{id}", tasks.Update)
		r.Delete("/tasks/{id}", tasks.Delete)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
