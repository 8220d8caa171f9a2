package credit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
)

// Handler exposes credit endpoints for borrowers and administrators.
type Handler struct {
	service *Service
}

// NewHandler builds a credit HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type requestBody struct {
	Amount  decimal.Decimal `json:"amount"`
	Tenure  int             `json:"tenure"`
	Purpose string          `json:"purpose"`
}

type repayBody struct {
	Amount    decimal.Decimal `json:"amount"`
	AccountID string          `json:"account_id"`
}

type rejectBody struct {
	Reason string `json:"reason"`
}

type disburseBody struct {
	AccountID string `json:"account_id"`
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
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "savings account not found")
	case errors.Is(err, ErrUnknownBorrower):
		return fiber.NewError(http.StatusNotFound, "borrower not found")
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "credit not found")
	case errors.Is(err, ErrDuplicatePendingCredit),
		errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrCreditNotActive),
		errors.Is(err, ledger.ErrConflict):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrRepaymentExceedsBalance),
		errors.Is(err, ErrAccountNotOwned),
		errors.Is(err, ErrNoActiveAccount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrAccountInactive):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Request submits a credit application for the authenticated user.
func (h *Handler) Request(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req requestBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := h.service.Request(c.UserContext(), uid, RequestInput{Amount: req.Amount, Tenure: req.Tenure, Purpose: req.Purpose})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(result)
}

// List returns the caller's credits.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	credits, err := h.service.List(c.UserContext(), uid)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(credits)
}

// Get returns one of the caller's credits with repayments.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(detail)
}

// Repay applies a repayment to one of the caller's credits.
func (h *Handler) Repay(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req repayBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	result, err := h.service.Repay(c.UserContext(), uid, c.Params("id"), RepayInput{Amount: req.Amount, AccountID: req.AccountID})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":           result.Message,
		"transaction":       result.Entry,
		"remaining_balance": result.Credit.OutstandingBalance,
		"next_payment_date": result.Credit.NextPaymentDate,
		"status":            result.Credit.Status,
	})
}

// Schedule returns the projected installment plan.
func (h *Handler) Schedule(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	credit, schedule, err := h.service.Schedule(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"credit": fiber.Map{
			"id":                  credit.ID,
			"principal":           credit.Principal,
			"total_repayable":     credit.TotalRepayable,
			"monthly_payment":     credit.MonthlyPayment,
			"tenure":              credit.Tenure,
			"amount_paid":         credit.AmountPaid,
			"outstanding_balance": credit.OutstandingBalance,
		},
		"schedule": schedule,
	})
}

// ListAll pages through all credits (?status=&skip=&take=).
func (h *Handler) ListAll(c *fiber.Ctx) error {
	page, err := h.service.ListAll(c.UserContext(), ledger.CreditStatus(c.Query("status")), c.QueryInt("skip", 0), c.QueryInt("take", defaultPageSize))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(page)
}

// ListPending pages through credits awaiting review.
func (h *Handler) ListPending(c *fiber.Ctx) error {
	page, err := h.service.ListPending(c.UserContext(), c.QueryInt("skip", 0), c.QueryInt("take", defaultPageSize))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(page)
}

// Stats returns credit counts per status.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(stats)
}

// AdminGet returns any credit with repayments.
func (h *Handler) AdminGet(c *fiber.Ctx) error {
	detail, err := h.service.GetAny(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(detail)
}

// Approve approves a pending credit as the calling administrator.
func (h *Handler) Approve(c *fiber.Ctx) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	credit, err := h.service.Approve(c.UserContext(), c.Params("id"), adminID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(credit)
}

// Reject rejects a pending credit with a reason.
func (h *Handler) Reject(c *fiber.Ctx) error {
	var req rejectBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	credit, err := h.service.Reject(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(credit)
}

// Disburse releases an approved credit to the borrower's savings account.
func (h *Handler) Disburse(c *fiber.Ctx) error {
	var req disburseBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	credit, entry, err := h.service.Disburse(c.UserContext(), c.Params("id"), req.AccountID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"credit": credit, "transaction": entry})
}

// Activate marks a disbursed credit active.
func (h *Handler) Activate(c *fiber.Ctx) error {
	credit, err := h.service.Activate(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(credit)
}

// MarkDefaulted marks an active credit defaulted.
func (h *Handler) MarkDefaulted(c *fiber.Ctx) error {
	credit, err := h.service.MarkDefaulted(c.UserContext(), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(http.StatusOK).JSON(credit)
}
