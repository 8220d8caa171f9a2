package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/notification"
	"github.com/congo-pay/credisave/internal/transactions"
)

// RegisterTransactionRoutes wires the caller's ledger history.
func RegisterTransactionRoutes(r fiber.Router, h *transactions.Handler) {
	group := r.Group("/transactions")
	group.Get("/", h.List)
	group.Get("/stats", h.Stats)
	group.Get("/monthly", h.Monthly)
	group.Get("/:id", h.Get)
}

// RegisterNotificationRoutes wires the caller's inbox.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	group := r.Group("/notifications")
	group.Get("/", h.List)
	group.Get("/unread-count", h.UnreadCount)
	group.Patch("/read-all", h.MarkAllRead)
	group.Get("/:id", h.Get)
	group.Patch("/:id/read", h.MarkRead)
	group.Delete("/:id", h.Delete)
}
