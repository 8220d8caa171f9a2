package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/ledger"
	"github.com/congo-pay/credisave/internal/notification"
)

const (
	// AutoApproveScore is the minimum score approved without review.
	AutoApproveScore = 700

	paymentInterval = 30 * 24 * time.Hour
	defaultPageSize = 10
)

// Service runs the credit lifecycle against the ledger store.
type Service struct {
	store    ledger.Store
	users    UserDirectory
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a credit service.
func NewService(store ledger.Store, users UserDirectory, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, users: users, notifier: notifier, logger: logger, now: time.Now}
}

// Request scores the borrower, prices the credit and stores it either
// auto-approved or pending review.
func (s *Service) Request(ctx context.Context, userID string, in RequestInput) (RequestResult, error) {
	if err := in.Validate(); err != nil {
		return RequestResult{}, err
	}
	borrower, err := s.users.Borrower(ctx, userID)
	if err != nil {
		return RequestResult{}, err
	}

	var created ledger.Credit
	err = ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		pending, err := tx.HasPendingCredit(ctx, userID)
		if err != nil {
			return err
		}
		if pending {
			return ErrDuplicatePendingCredit
		}

		history, err := tx.History(ctx, userID)
		if err != nil {
			return err
		}
		score := ScoreFromHistory(history, borrower.KYCVerified)
		terms := ComputeTerms(in.Amount, RateForScore(score), in.Tenure)

		now := s.now().UTC()
		c := ledger.Credit{
			ID:                 uuid.NewString(),
			UserID:             userID,
			Principal:          in.Amount,
			InterestRate:       terms.InterestRate,
			Tenure:             in.Tenure,
			MonthlyPayment:     terms.MonthlyPayment,
			TotalRepayable:     terms.TotalRepayable,
			AmountPaid:         decimal.Zero,
			OutstandingBalance: terms.TotalRepayable,
			CreditScore:        score,
			Status:             ledger.CreditPending,
			Purpose:            in.Purpose,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if score >= AutoApproveScore {
			next := now.Add(paymentInterval)
			c.Status = ledger.CreditApproved
			c.ApprovedAt = &now
			c.NextPaymentDate = &next
		}

		if err := tx.InsertCredit(ctx, c); err != nil {
			if errors.Is(err, ledger.ErrPendingCreditExists) {
				return ErrDuplicatePendingCredit
			}
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return RequestResult{}, err
	}

	autoApproved := created.Status == ledger.CreditApproved
	s.logger.Info("credit requested",
		slog.String("credit_id", created.ID),
		slog.String("user_id", userID),
		slog.Int("score", created.CreditScore),
		slog.String("status", string(created.Status)))

	result := RequestResult{Credit: created, AutoApproved: autoApproved}
	if autoApproved {
		result.Message = "Credit request approved automatically"
		s.notify(ctx, approvedMessage(created))
	} else {
		result.Message = "Credit request submitted successfully. Awaiting approval."
	}
	return result, nil
}

// Approve moves a pending credit to APPROVED on behalf of adminID.
func (s *Service) Approve(ctx context.Context, creditID, adminID string) (ledger.Credit, error) {
	c, err := s.transition(ctx, creditID, func(ctx context.Context, tx ledger.Tx, c *ledger.Credit, now time.Time) error {
		if c.Status != ledger.CreditPending {
			return fmt.Errorf("%w: only pending credits can be approved", ErrInvalidStateTransition)
		}
		next := now.Add(paymentInterval)
		c.Status = ledger.CreditApproved
		c.ApprovedBy = adminID
		c.ApprovedAt = &now
		c.NextPaymentDate = &next
		return nil
	})
	if err != nil {
		return ledger.Credit{}, err
	}
	s.notify(ctx, approvedMessage(c))
	return c, nil
}

// Reject moves a pending credit to REJECTED with a mandatory reason.
func (s *Service) Reject(ctx context.Context, creditID, reason string) (ledger.Credit, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return ledger.Credit{}, err
	}
	c, err := s.transition(ctx, creditID, func(ctx context.Context, tx ledger.Tx, c *ledger.Credit, now time.Time) error {
		if c.Status != ledger.CreditPending {
			return fmt.Errorf("%w: only pending credits can be rejected", ErrInvalidStateTransition)
		}
		c.Status = ledger.CreditRejected
		c.RejectionReason = reason
		return nil
	})
	if err != nil {
		return ledger.Credit{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:     notification.KindCreditRejected,
		UserID:   c.UserID,
		Title:    "Credit Request Rejected",
		Body:     fmt.Sprintf("Your credit request of %s was rejected: %s", c.Principal.StringFixed(2), reason),
		Metadata: map[string]string{"credit_id": c.ID},
	})
	return c, nil
}

// Disburse credits the principal of an approved credit to the borrower's
// savings account. Without accountID the borrower's newest active account is used.
func (s *Service) Disburse(ctx context.Context, creditID, accountID string) (ledger.Credit, ledger.Entry, error) {
	var entry ledger.Entry
	c, err := s.transition(ctx, creditID, func(ctx context.Context, tx ledger.Tx, c *ledger.Credit, now time.Time) error {
		if c.Status != ledger.CreditApproved {
			return fmt.Errorf("%w: only approved credits can be disbursed", ErrInvalidStateTransition)
		}
		target, err := disbursementAccount(ctx, tx, c.UserID, accountID)
		if err != nil {
			return err
		}
		posting, err := ledger.ApplyDisbursement(ctx, tx, target, c.ID, c.Principal, now)
		if err != nil {
			return err
		}
		entry = posting.Entry
		c.Status = ledger.CreditDisbursed
		c.DisbursedAt = &now
		return nil
	})
	if err != nil {
		return ledger.Credit{}, ledger.Entry{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:     notification.KindCreditDisbursed,
		UserID:   c.UserID,
		Title:    "Credit Disbursed",
		Body:     fmt.Sprintf("%s has been credited to your savings account", c.Principal.StringFixed(2)),
		Metadata: map[string]string{"credit_id": c.ID, "reference": entry.Reference},
	})
	return c, entry, nil
}

// Activate moves a disbursed credit to ACTIVE.
func (s *Service) Activate(ctx context.Context, creditID string) (ledger.Credit, error) {
	return s.transition(ctx, creditID, func(_ context.Context, _ ledger.Tx, c *ledger.Credit, _ time.Time) error {
		if c.Status != ledger.CreditDisbursed {
			return fmt.Errorf("%w: only disbursed credits can be activated", ErrInvalidStateTransition)
		}
		c.Status = ledger.CreditActive
		return nil
	})
}

// MarkDefaulted moves an active credit to DEFAULTED.
func (s *Service) MarkDefaulted(ctx context.Context, creditID string) (ledger.Credit, error) {
	return s.transition(ctx, creditID, func(_ context.Context, _ ledger.Tx, c *ledger.Credit, _ time.Time) error {
		if c.Status != ledger.CreditActive {
			return fmt.Errorf("%w: only active credits can default", ErrInvalidStateTransition)
		}
		c.Status = ledger.CreditDefaulted
		c.NextPaymentDate = nil
		return nil
	})
}

// Repay applies a repayment to a credit owned by userID. The entry, the
// repayment record and the credit update commit together.
func (s *Service) Repay(ctx context.Context, userID, creditID string, in RepayInput) (RepayResult, error) {
	var result RepayResult
	err := ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		c, err := tx.LockCredit(ctx, creditID)
		if err != nil {
			return err
		}
		if c.UserID != userID {
			return ledger.ErrNotFound
		}
		if c.Status != ledger.CreditActive && c.Status != ledger.CreditDisbursed {
			return ErrCreditNotActive
		}
		if !in.Amount.IsPositive() || in.Amount.GreaterThan(c.OutstandingBalance) {
			return fmt.Errorf("%w of %s", ErrRepaymentExceedsBalance, c.OutstandingBalance.StringFixed(2))
		}

		now := s.now().UTC()
		var entry ledger.Entry
		if in.AccountID != "" {
			account, err := lookupAccount(ctx, tx, in.AccountID)
			if err != nil {
				return err
			}
			if account.UserID != c.UserID {
				return ErrAccountNotOwned
			}
			posting, err := ledger.ApplyRepaymentDebit(ctx, tx, account.ID, c.ID, in.Amount, now)
			if err != nil {
				return err
			}
			entry = posting.Entry
		} else {
			entry, err = ledger.RecordCreditEntry(ctx, tx, c.UserID, c.ID, ledger.EntryCreditRepayment, in.Amount, "Credit repayment", now)
			if err != nil {
				return err
			}
		}

		repayment := ledger.Repayment{
			ID:        uuid.NewString(),
			CreditID:  c.ID,
			EntryID:   entry.ID,
			Amount:    entry.Amount,
			CreatedAt: now,
		}
		if err := tx.InsertRepayment(ctx, repayment); err != nil {
			return err
		}

		c.AmountPaid = c.AmountPaid.Add(in.Amount)
		c.OutstandingBalance = c.OutstandingBalance.Sub(in.Amount)
		if c.OutstandingBalance.IsZero() {
			c.Status = ledger.CreditCompleted
			c.NextPaymentDate = nil
		} else {
			next := now.Add(paymentInterval)
			c.NextPaymentDate = &next
		}
		c.UpdatedAt = now
		if err := tx.UpdateCredit(ctx, c); err != nil {
			return err
		}

		result = RepayResult{Credit: c, Entry: entry, Repayment: repayment}
		return nil
	})
	if err != nil {
		return RepayResult{}, err
	}

	s.logger.Info("credit repaid",
		slog.String("credit_id", creditID),
		slog.String("amount", in.Amount.StringFixed(2)),
		slog.String("outstanding", result.Credit.OutstandingBalance.StringFixed(2)),
		slog.String("status", string(result.Credit.Status)))

	if result.Credit.Status == ledger.CreditCompleted {
		result.Message = "Credit fully repaid!"
		s.notify(ctx, notification.Message{
			Kind:     notification.KindCreditCompleted,
			UserID:   result.Credit.UserID,
			Title:    "Credit Completed",
			Body:     "Your credit has been fully repaid",
			Metadata: map[string]string{"credit_id": result.Credit.ID},
		})
	} else {
		result.Message = "Repayment successful"
	}
	return result, nil
}

// Get returns a credit owned by userID with its repayments.
func (s *Service) Get(ctx context.Context, userID, creditID string) (Detail, error) {
	c, err := s.store.Credit(ctx, creditID)
	if err != nil {
		return Detail{}, err
	}
	if c.UserID != userID {
		return Detail{}, ledger.ErrNotFound
	}
	return s.detail(ctx, c)
}

// GetAny returns any credit with its repayments, for administrators.
func (s *Service) GetAny(ctx context.Context, creditID string) (Detail, error) {
	c, err := s.store.Credit(ctx, creditID)
	if err != nil {
		return Detail{}, err
	}
	return s.detail(ctx, c)
}

func (s *Service) detail(ctx context.Context, c ledger.Credit) (Detail, error) {
	repayments, err := s.store.Repayments(ctx, c.ID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Credit: c, Repayments: repayments}, nil
}

// List returns the user's credits, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Credit, error) {
	credits, _, err := s.store.Credits(ctx, ledger.CreditFilter{UserID: userID})
	return credits, err
}

// ListAll pages through every credit, optionally filtered by status.
func (s *Service) ListAll(ctx context.Context, status ledger.CreditStatus, skip, take int) (Page, error) {
	if status != "" && !status.Valid() {
		return Page{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = defaultPageSize
	}
	credits, total, err := s.store.Credits(ctx, ledger.CreditFilter{Status: status, Skip: skip, Take: take})
	if err != nil {
		return Page{}, err
	}
	return Page{Data: credits, Total: total, Skip: skip, Take: take}, nil
}

// ListPending pages through credits awaiting review.
func (s *Service) ListPending(ctx context.Context, skip, take int) (Page, error) {
	return s.ListAll(ctx, ledger.CreditPending, skip, take)
}

// Stats counts credits per lifecycle status from a single store read. Every
// status is present, zero when no credit holds it.
func (s *Service) Stats(ctx context.Context) (map[ledger.CreditStatus]int, error) {
	counts, err := s.store.CreditCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[ledger.CreditStatus]int, len(ledger.CreditStatuses))
	for _, status := range ledger.CreditStatuses {
		stats[status] = counts[status]
	}
	return stats, nil
}

// Schedule projects the installment plan of a credit owned by userID.
func (s *Service) Schedule(ctx context.Context, userID, creditID string) (ledger.Credit, []Installment, error) {
	c, err := s.store.Credit(ctx, creditID)
	if err != nil {
		return ledger.Credit{}, nil, err
	}
	if c.UserID != userID {
		return ledger.Credit{}, nil, ledger.ErrNotFound
	}
	return c, ProjectSchedule(c, s.now()), nil
}

type mutation func(ctx context.Context, tx ledger.Tx, c *ledger.Credit, now time.Time) error

func (s *Service) transition(ctx context.Context, creditID string, apply mutation) (ledger.Credit, error) {
	var updated ledger.Credit
	var from ledger.CreditStatus
	err := ledger.RunAtomic(ctx, s.store, func(ctx context.Context, tx ledger.Tx) error {
		c, err := tx.LockCredit(ctx, creditID)
		if err != nil {
			return err
		}
		from = c.Status
		now := s.now().UTC()
		if err := apply(ctx, tx, &c, now); err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := tx.UpdateCredit(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return ledger.Credit{}, err
	}
	s.logger.Info("credit transition",
		slog.String("credit_id", updated.ID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)))
	return updated, nil
}

func disbursementAccount(ctx context.Context, tx ledger.Tx, userID, accountID string) (string, error) {
	if accountID != "" {
		account, err := lookupAccount(ctx, tx, accountID)
		if err != nil {
			return "", err
		}
		if account.UserID != userID {
			return "", ErrAccountNotOwned
		}
		return account.ID, nil
	}
	accounts, err := tx.Accounts(ctx, ledger.AccountFilter{UserID: userID})
	if err != nil {
		return "", err
	}
	for _, account := range accounts {
		if account.IsActive {
			return account.ID, nil
		}
	}
	return "", ErrNoActiveAccount
}

func lookupAccount(ctx context.Context, tx ledger.Tx, accountID string) (ledger.Account, error) {
	account, err := tx.Account(ctx, accountID)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Account{}, fmt.Errorf("%w: %w", ErrAccountNotFound, err)
	}
	return account, err
}

func approvedMessage(c ledger.Credit) notification.Message {
	return notification.Message{
		Kind:     notification.KindCreditApproved,
		UserID:   c.UserID,
		Title:    "Credit Approved",
		Body:     fmt.Sprintf("Your credit request of %s has been approved at %s%%", c.Principal.StringFixed(2), c.InterestRate.StringFixed(1)),
		Metadata: map[string]string{"credit_id": c.ID},
	}
}

// notify is fire-and-forget: delivery problems are logged, never returned.
func (s *Service) notify(ctx context.Context, message notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, message); err != nil {
		s.logger.Warn("credit notification failed",
			slog.String("kind", message.Kind),
			slog.String("user_id", message.UserID),
			slog.Any("error", err))
	}
}
