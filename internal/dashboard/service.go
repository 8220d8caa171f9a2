// Package dashboard assembles the customer landing view from the profile,
// savings accounts, credits and recent ledger activity.
package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/identity"
	"github.com/congo-pay/credisave/internal/ledger"
)

const (
	recentCredits      = 5
	recentTransactions = 10
)

// Profiles resolves the signed-in user.
type Profiles interface {
	Profile(ctx context.Context, userID string) (identity.User, error)
}

// Inbox reports unread notifications.
type Inbox interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// UserSummary is the part of the profile shown on the dashboard.
type UserSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// View is the customer dashboard.
type View struct {
	User                UserSummary      `json:"user"`
	Accounts            []ledger.Account `json:"savings_accounts"`
	TotalSavings        decimal.Decimal  `json:"total_savings"`
	ActiveCredits       int              `json:"active_credits"`
	TotalCreditAmount   decimal.Decimal  `json:"total_credit_amount"`
	OutstandingBalance  decimal.Decimal  `json:"outstanding_balance"`
	RecentCredits       []ledger.Credit  `json:"recent_credits"`
	RecentTransactions  []ledger.Entry   `json:"recent_transactions"`
	UnreadNotifications int              `json:"unread_notifications"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// Service builds dashboards over the ledger.
type Service struct {
	store    ledger.Reader
	profiles Profiles
	inbox    Inbox
	now      func() time.Time
}

// NewService builds a dashboard service. inbox may be nil.
func NewService(store ledger.Reader, profiles Profiles, inbox Inbox) *Service {
	return &Service{store: store, profiles: profiles, inbox: inbox, now: time.Now}
}

// Get returns the dashboard of userID. Savings totals cover active accounts;
// credit totals cover every credit the user holds.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	user, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return View{}, err
	}
	accounts, err := s.store.Accounts(ctx, ledger.AccountFilter{UserID: userID})
	if err != nil {
		return View{}, err
	}
	credits, _, err := s.store.Credits(ctx, ledger.CreditFilter{UserID: userID})
	if err != nil {
		return View{}, err
	}
	entries, err := s.store.Entries(ctx, ledger.EntryFilter{UserID: userID, Limit: recentTransactions})
	if err != nil {
		return View{}, err
	}

	view := View{
		User: UserSummary{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		Accounts:           []ledger.Account{},
		TotalSavings:       decimal.Zero,
		TotalCreditAmount:  decimal.Zero,
		OutstandingBalance: decimal.Zero,
		RecentTransactions: entries,
		GeneratedAt:        s.now().UTC(),
	}
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		view.Accounts = append(view.Accounts, a)
		view.TotalSavings = view.TotalSavings.Add(a.Balance)
	}
	for _, c := range credits {
		view.TotalCreditAmount = view.TotalCreditAmount.Add(c.Principal)
		if c.Status == ledger.CreditActive || c.Status == ledger.CreditDisbursed {
			view.ActiveCredits++
			view.OutstandingBalance = view.OutstandingBalance.Add(c.OutstandingBalance)
		}
	}
	view.RecentCredits = credits[:min(recentCredits, len(credits))]

	if s.inbox != nil {
		unread, err := s.inbox.UnreadCount(ctx, userID)
		if err != nil {
			return View{}, err
		}
		view.UnreadNotifications = unread
	}
	return view, nil
}
