package dashboard

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/credisave/internal/identity"
)

// Handler exposes the customer dashboard.
type Handler struct {
	service *Service
}

// NewHandler builds a dashboard HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get returns the caller's dashboard.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	view, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(view)
}
