package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/auth"
	"github.com/congo-pay/credisave/internal/identity"
)

// RegisterAuthRoutes wires registration and session endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ids *identity.Handler, rateLimiter, jwt fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", ids.Register)
	group.Post("/login", rateLimiter, h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwt, h.Logout)
}

// RegisterProfileRoutes wires the caller's own profile.
func RegisterProfileRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Profile)
	r.Patch("/me", h.UpdateProfile)
	r.Post("/me/password", h.ChangePassword)
}
