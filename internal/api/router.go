package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/samandr77/microservices/account/docs" //nolint:revive,nolintlint
)

func NewRouter(h *Handler, mw *Middleware, corsOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(
		mw.Recover,
		cors.Handler(cors.Options{
			AllowOriginFunc:  originAllowed(corsOrigins),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		mw.WithIP,
		mw.WithDeviceID,
		mw.Log,
	)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/verify-otp", h.VerifyOTP)
			r.Post("/request-code", h.RequestCode)
			r.Post("/reset-password", h.ResetPassword)
			r.Post("/resend-otp", h.ResendOTP)
			r.Post("/refresh-token", h.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(mw.BearerAuth)

				r.Get("/me", h.Me)
				r.Get("/profiles", h.Profiles)
				r.Put("/update-profile", h.UpdateProfile)
				r.Put("/update-password", h.UpdatePassword)
				r.Post("/logout", h.Logout)
				r.Delete("/delete", h.Delete)
			})
		})
	})

	return router
}

// originAllowed matches origins exactly. A wildcard is never honoured since
// the refresh cookie travels with credentialed requests.
func originAllowed(origins []string) func(*http.Request, string) bool {
	allowed := make(map[string]struct{}, len(origins))

	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" && o != "*" {
			allowed[o] = struct{}{}
		}
	}

	return func(_ *http.Request, origin string) bool {
		_, ok := allowed[origin]
		return ok
	}
}
