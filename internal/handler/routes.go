package handler

import (
	"net/http"
	"strings"

	_ "github.com/Dan9191/adboard/docs" // Swagger docs
	"github.com/Dan9191/adboard/internal/middleware"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Routes builds the full HTTP surface with its middleware chain. Request
// metrics are registered with reg and exposed on /metrics.
//
//	@title						Adboard API
//	@version					1.0
//	@description				Classified ads with users, image uploads and JWT authentication.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (h *Handler) Routes(reg *prometheus.Registry) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.Use(middleware.NewMetrics(reg).Middleware)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)

	if h.cfg.StorageDriver == "local" {
		prefix := h.cfg.UploadURLPrefix + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(h.cfg.UploadDir))))).
			Methods(http.MethodGet, http.MethodHead)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL("/api/v1/swagger/doc.json")))

	authn := middleware.Authenticate(h.svc)
	secured := func(f http.HandlerFunc) http.Handler { return authn(f) }
	admin := func(f http.HandlerFunc) http.Handler {
		return authn(middleware.RequireRole(models.RoleAdmin)(f))
	}
	limiter := middleware.NewRateLimiter(h.cfg.RateLimitRPM, h.cfg.RateLimitBurst, h.cfg.TrustedProxies)

	// Auth routes
	api.Handle("/auth/register", limiter.Middleware(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	api.Handle("/auth/login", limiter.Middleware(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	api.Handle("/auth/logout", secured(h.Logout)).Methods(http.MethodPost)
	api.Handle("/auth/verify", limiter.Middleware(secured(h.VerifyOTP))).Methods(http.MethodPost)
	api.Handle("/auth/verify/resend", limiter.Middleware(secured(h.ResendOTP))).Methods(http.MethodPost)
	api.Handle("/auth/me", secured(h.Me)).Methods(http.MethodGet)
	api.Handle("/auth/users", admin(h.ListUsers)).Methods(http.MethodGet)
	api.Handle("/auth/username/{id}", secured(h.UpdateUsername)).Methods(http.MethodPatch)
	api.Handle("/auth/password/{id}", secured(h.UpdatePassword)).Methods(http.MethodPatch)
	api.Handle("/auth/create/avatar/{id}", secured(h.UpdateAvatar)).Methods(http.MethodPatch)
	api.Handle("/auth/delete/avatar/{id}", secured(h.DeleteAvatar)).Methods(http.MethodDelete)

	// Ad routes; the fixed paths must precede /ads/{id}
	api.HandleFunc("/ads", h.ListAds).Methods(http.MethodGet)
	api.Handle("/ads/my", secured(h.MyAds)).Methods(http.MethodGet)
	api.HandleFunc("/ads/feed", h.Feed).Methods(http.MethodGet)
	api.Handle("/ads/create", secured(h.CreateAd)).Methods(http.MethodPost)
	api.Handle("/ads/update/{id}", secured(h.UpdateAd)).Methods(http.MethodPut)
	api.Handle("/ads/delete/{id}", secured(h.DeleteAd)).Methods(http.MethodDelete)
	api.HandleFunc("/ads/{id}", h.GetAd).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(h.cfg.CORSOrigins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
		handlers.AllowCredentials(),
	)

	return middleware.RequestLogger(h.log)(middleware.Recoverer(cors(r)))
}

// noListing hides directory indexes of the upload folder
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
