package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/credit"
)

// RegisterCreditRoutes wires the borrower's credit endpoints.
func RegisterCreditRoutes(r fiber.Router, h *credit.Handler, idem fiber.Handler) {
	group := r.Group("/credits")
	group.Get("/", h.List)
	group.Post("/", idem, h.Request)
	group.Get("/:id", h.Get)
	group.Get("/:id/schedule", h.Schedule)
	group.Post("/:id/repay", idem, h.Repay)
}
