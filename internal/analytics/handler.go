package analytics

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes back-office analytics endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an analytics HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dashboard returns headline figures.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	d, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(d)
}

// CreditPerformance returns loan book rates.
func (h *Handler) CreditPerformance(c *fiber.Ctx) error {
	p, err := h.service.CreditPerformance(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(p)
}

// Savings returns savings account totals.
func (h *Handler) Savings(c *fiber.Ctx) error {
	stats, err := h.service.SavingsStats(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(stats)
}

// Transactions returns entry totals over ?days= (default 30).
func (h *Handler) Transactions(c *fiber.Ctx) error {
	stats, err := h.service.TransactionStats(c.UserContext(), c.QueryInt("days", DefaultDays))
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(stats)
}

// UserGrowth returns customer sign-ups per day over ?days= (default 30).
func (h *Handler) UserGrowth(c *fiber.Ctx) error {
	growth, err := h.service.UserGrowth(c.UserContext(), c.QueryInt("days", DefaultDays))
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(growth)
}

// Refresh drops cached analytics views.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	h.service.Invalidate(c.UserContext())
	return c.SendStatus(http.StatusNoContent)
}
