package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type statusRequest struct {
	Status Status `json:"status"`
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
	case errors.Is(err, ErrInvalidInput):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInactive):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyExists):
		return fiber.NewError(http.StatusConflict, "email or phone number already registered")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Register handles user onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Registration successful", "user": user})
}

// Profile returns the caller's profile.
func (h *Handler) Profile(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.service.Profile(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(user)
}

// UpdateProfile edits the caller's profile.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.UpdateProfile(c.UserContext(), uid, ProfileUpdate(req))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(user)
}

// ChangePassword rotates the caller's password.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ChangePassword(c.UserContext(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully. Please login again."})
}

// List returns customers for the back office.
func (h *Handler) List(c *fiber.Ctx) error {
	page, err := h.service.List(c.UserContext(), ListFilter{
		Search: c.Query("search"),
		Skip:   c.QueryInt("skip", 0),
		Take:   c.QueryInt("take", defaultPageSize),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(page)
}

// Get returns one user for the back office.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, err := h.service.Profile(c.UserContext(), c.Params("userId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(user)
}

// SetStatus suspends, closes or reactivates a user.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.SetStatus(c.UserContext(), c.Params("userId"), req.Status)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(user)
}

// Stats returns customer counts per status.
func (h *Handler) Stats(c *fiber.Ctx) error {
	counts, err := h.service.Counts(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(counts)
}
