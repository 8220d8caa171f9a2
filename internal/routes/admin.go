package routes

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterAdminRoutes wires back-office endpoints. The router must already
// enforce the admin role.
func RegisterAdminRoutes(r fiber.Router, h handlers, idem fiber.Handler) {
	credits := r.Group("/credits")
	credits.Get("/", h.credit.ListAll)
	credits.Get("/pending", h.credit.ListPending)
	credits.Get("/stats", h.credit.Stats)
	credits.Get("/:id", h.credit.AdminGet)
	credits.Patch("/:id/approve", h.credit.Approve)
	credits.Patch("/:id/reject", h.credit.Reject)
	credits.Post("/:id/disburse", idem, h.credit.Disburse)
	credits.Patch("/:id/activate", h.credit.Activate)
	credits.Patch("/:id/default", h.credit.MarkDefaulted)

	users := r.Group("/users")
	users.Get("/", h.identity.List)
	users.Get("/stats", h.identity.Stats)
	users.Get("/:userId", h.identity.Get)
	users.Patch("/:userId/status", h.identity.SetStatus)

	r.Patch("/savings/:accountId/deactivate", h.savings.Deactivate)

	stats := r.Group("/analytics")
	stats.Get("/dashboard", h.analytics.Dashboard)
	stats.Get("/credits", h.analytics.CreditPerformance)
	stats.Get("/savings", h.analytics.Savings)
	stats.Get("/transactions", h.analytics.Transactions)
	stats.Get("/users", h.analytics.UserGrowth)
	stats.Delete("/cache", h.analytics.Refresh)
}
