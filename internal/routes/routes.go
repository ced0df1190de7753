package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/handlers"
	"github.com/lojapijamas/storefront/internal/middleware"
	"github.com/lojapijamas/storefront/internal/storage"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Users      *handlers.UserHandler
	Products   *handlers.ProductHandler
	Orders     *handlers.OrderHandler
	Payments   *handlers.PaymentHandler
	Shipping   *handlers.ShippingHandler
	Newsletter *handlers.NewsletterHandler
	Health     *handlers.HealthHandler
	Uploads    http.Handler
}

// RegisterRoutes registers all application routes. ipConfig must be the same
// trusted proxy list the auth handler uses.
func RegisterRoutes(router chi.Router, h Handlers, tokenManager *auth.TokenManager, ipConfig *pkghttp.IPConfig) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit(), ipConfig)
	formLimit := middleware.RateLimitByIP(middleware.DefaultFormRateLimit(), ipConfig)
	authenticated := auth.AuthMiddleware(tokenManager)
	admin := auth.RequireAdmin()

	router.Get("/health", h.Health.Health)
	router.Handle("/metrics", promhttp.Handler())
	router.Handle(storage.PublicPrefix+"*", h.Uploads)

	router.Route("/auth", func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/register", h.Auth.Register)
		r.Post("/verify-email", h.Auth.VerifyEmail)
		r.Get("/verify/{token}", h.Auth.VerifyEmailLink)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Post("/resend-verification", h.Auth.ResendVerification)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password/{token}", h.Auth.ResetPassword)
		r.Get("/me", h.Auth.Me)
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.ListProducts)
			r.Get("/category/{category}", h.Products.ListByCategory)
			r.Get("/{id}", h.Products.GetProduct)
			r.With(authenticated, admin).Post("/", h.Products.CreateProduct)
			r.With(authenticated, admin).Delete("/{id}", h.Products.DeleteProduct)
		})
		r.With(authenticated, admin).Post("/upload", h.Products.Upload)

		r.Post("/shipping/quote", h.Shipping.Quote)
		r.Post("/payments/preference", h.Payments.CreatePreference)
		r.Post("/mercadopago/webhook", h.Payments.Webhook)

		r.Route("/orders", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/mine", h.Orders.ListMine)
			r.With(admin).Get("/", h.Orders.ListOrders)
			r.With(admin).Put("/{id}/status", h.Orders.UpdateStatus)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/by-email/{email}", h.Users.GetUserByEmail)
			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.Users.ListUsers)
				r.Put("/{id}", h.Users.UpdateUser)
				r.Delete("/{id}", h.Users.DeleteUser)
			})
		})

		r.Route("/newsletter", func(r chi.Router) {
			r.With(formLimit).Post("/", h.Newsletter.Subscribe)
			r.With(authenticated, admin).Post("/notify", h.Newsletter.Notify)
		})
		r.With(formLimit).Post("/contact", h.Newsletter.Contact)
	})
}
