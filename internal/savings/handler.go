package savings

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

// Handler exposes savings HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a savings HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	Currency string `json:"currency"`
}

type movementRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
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
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "savings account not found")
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAccountInactive):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Open provisions an additional savings account for the caller.
func (h *Handler) Open(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req openRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	account, err := h.service.Open(c.UserContext(), uid, req.Currency)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(account)
}

// List returns the caller's accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	accounts, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(accounts)
}

// Get returns an account with its recent transactions.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), uid, c.Params("accountId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(detail)
}

// Balance returns the account balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), uid, c.Params("accountId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(balance)
}

// Deposit credits the account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.movement(c, h.service.Deposit)
}

// Withdraw debits the account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.movement(c, h.service.Withdraw)
}

// History lists account transactions (?limit=).
func (h *Handler) History(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), uid, c.Params("accountId"), c.QueryInt("limit", defaultHistoryLimit))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(entries)
}

// Deactivate closes an account. Administrators only.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	account, err := h.service.Deactivate(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(account)
}

type movementFunc func(ctx context.Context, userID, accountID string, in MovementInput) (MovementResult, error)

func (h *Handler) movement(c *fiber.Ctx, apply movementFunc) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := apply(c.UserContext(), uid, c.Params("accountId"), MovementInput{Amount: req.Amount, Description: req.Description})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(result)
}
