package notification

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes inbox endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler builds a notification HTTP handler.
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
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if errors.Is(err, ErrInvalidMessage) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return fiber.NewError(http.StatusInternalServerError, err.Error())
}

// List returns notifications filtered by ?type=, ?unread_only= and ?limit=.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	filter := ListFilter{
		Type:       Channel(c.Query("type")),
		UnreadOnly: c.QueryBool("unread_only", false),
		Limit:      c.QueryInt("limit", DefaultLimit),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return fiber.NewError(http.StatusBadRequest, "unknown notification type")
	}
	items, err := h.service.List(c.UserContext(), uid, filter)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(items)
}

// Get returns a single notification.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.service.Get(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(n)
}

// UnreadCount returns the number of unread notifications.
func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"unread_count": count})
}

// MarkRead flags a notification as read.
func (h *Handler) MarkRead(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.service.MarkRead(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(n)
}

// MarkAllRead flags every unread notification as read.
func (h *Handler) MarkAllRead(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllRead(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "All notifications marked as read", "updated": updated})
}

// Delete removes a notification.
func (h *Handler) Delete(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), uid, c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Notification deleted successfully"})
}
