package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/savings"
)

// RegisterSavingsRoutes wires the caller's savings accounts. Money movements
// require an Idempotency-Key.
func RegisterSavingsRoutes(r fiber.Router, h *savings.Handler, idem fiber.Handler) {
	group := r.Group("/savings")
	group.Get("/", h.List)
	group.Post("/", h.Open)
	group.Get("/:accountId", h.Get)
	group.Get("/:accountId/balance", h.Balance)
	group.Get("/:accountId/transactions", h.History)
	group.Post("/:accountId/deposit", idem, h.Deposit)
	group.Post("/:accountId/withdraw", idem, h.Withdraw)
}
