package transactions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/ledger"
)

// Handler exposes the caller's transaction history.
type Handler struct {
	service *Service
}

// NewHandler builds a transactions HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func currentUser(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return uid, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidFilter):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "transaction not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fiber.NewError(http.StatusBadRequest, "dates must be RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

// List returns filtered history (?type=&status=&start_date=&end_date=&limit=).
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	from, err := parseTime(c.Query("start_date"))
	if err != nil {
		return err
	}
	to, err := parseTime(c.Query("end_date"))
	if err != nil {
		return err
	}
	entries, err := h.service.List(c.UserContext(), uid, Filter{
		Type:   ledger.EntryType(c.Query("type")),
		Status: ledger.EntryStatus(c.Query("status")),
		From:   from,
		To:     to,
		Limit:  c.QueryInt("limit", MaxLimit),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(entries)
}

// Get returns one transaction.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	entry, err := h.service.Get(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(entry)
}

// Stats returns totals over ?period=week|month|year.
func (h *Handler) Stats(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.service.Stats(c.UserContext(), uid, Period(c.Query("period", string(PeriodMonth))))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(stats)
}

// Monthly returns per-month rollups over ?months=.
func (h *Handler) Monthly(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	months, err := h.service.Monthly(c.UserContext(), uid, c.QueryInt("months", defaultMonths))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(months)
}
