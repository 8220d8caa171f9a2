package dashboard

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/credisave/internal/identity"
	"github.com/congo-pay/credisave/internal/ledger"
	"github.com/congo-pay/credisave/internal/logging"
	"github.com/congo-pay/credisave/internal/notification"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc   *Service
	store *ledger.InMemoryStore
	inbox *notification.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	repo := identity.NewMemoryRepository()
	for _, id := range []string{"ada", "bob"} {
		err := repo.Create(ctx, identity.User{
			ID: id, Email: id + "@example.com", FirstName: id, LastName: "Tester",
			Role: identity.RoleCustomer, Status: identity.StatusActive,
		})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	store := ledger.NewInMemory()
	inbox := notification.NewService(notification.NewMemoryRepository())
	svc := NewService(store, identity.NewService(repo, nil, logging.Discard()), inbox)
	return fixture{svc: svc, store: store, inbox: inbox}
}

func seedAccount(t *testing.T, store ledger.Store, userID, balance string, active bool) ledger.Account {
	t.Helper()
	ctx := context.Background()
	account, err := ledger.SeedAccount(ctx, store, userID, dec(balance))
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if !active {
		account.IsActive = false
		err := store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.UpdateAccount(ctx, account)
		})
		if err != nil {
			t.Fatalf("deactivate: %v", err)
		}
	}
	return account
}

func seedCredit(t *testing.T, store ledger.Store, userID string, status ledger.CreditStatus, principal, outstanding string) {
	t.Helper()
	_, err := ledger.SeedCredit(context.Background(), store, ledger.Credit{
		UserID:             userID,
		Principal:          dec(principal),
		OutstandingBalance: dec(outstanding),
		Tenure:             12,
		Status:             status,
	})
	if err != nil {
		t.Fatalf("seed credit: %v", err)
	}
}

func TestGet_SummarisesSavingsCreditsAndActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	primary := seedAccount(t, f.store, "ada", "100", true)
	seedAccount(t, f.store, "ada", "50", true)
	seedAccount(t, f.store, "ada", "999", false)
	seedAccount(t, f.store, "bob", "5000", true)

	seedCredit(t, f.store, "ada", ledger.CreditCompleted, "100", "0")
	seedCredit(t, f.store, "ada", ledger.CreditCompleted, "100", "0")
	seedCredit(t, f.store, "ada", ledger.CreditCompleted, "100", "0")
	seedCredit(t, f.store, "ada", ledger.CreditRejected, "300", "330")
	seedCredit(t, f.store, "ada", ledger.CreditCompleted, "200", "0")
	seedCredit(t, f.store, "ada", ledger.CreditDisbursed, "500", "500")
	seedCredit(t, f.store, "ada", ledger.CreditActive, "1000", "600")
	seedCredit(t, f.store, "bob", ledger.CreditActive, "9000", "9000")

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	err := f.store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		for i := 0; i < 12; i++ {
			if _, err := ledger.ApplyDeposit(ctx, tx, primary.ID, dec("1"), "top up", base.Add(time.Duration(i)*time.Hour)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("deposits: %v", err)
	}

	for _, title := range []string{"first", "second"} {
		if _, err := f.inbox.Create(ctx, notification.Message{UserID: "ada", Title: title, Body: "hello"}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	view, err := f.svc.Get(ctx, "ada")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if view.User.ID != "ada" || view.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user summary: %+v", view.User)
	}
	if len(view.Accounts) != 2 {
		t.Fatalf("expected 2 active accounts, got %d", len(view.Accounts))
	}
	if !view.TotalSavings.Equal(dec("162")) {
		t.Fatalf("expected total savings 162, got %s", view.TotalSavings)
	}
	if view.ActiveCredits != 2 {
		t.Fatalf("expected 2 active credits, got %d", view.ActiveCredits)
	}
	if !view.TotalCreditAmount.Equal(dec("2300")) {
		t.Fatalf("expected total credit amount 2300, got %s", view.TotalCreditAmount)
	}
	if !view.OutstandingBalance.Equal(dec("1100")) {
		t.Fatalf("expected outstanding 1100, got %s", view.OutstandingBalance)
	}
	if len(view.RecentCredits) != recentCredits {
		t.Fatalf("expected %d recent credits, got %d", recentCredits, len(view.RecentCredits))
	}
	if len(view.RecentTransactions) != recentTransactions {
		t.Fatalf("expected %d recent transactions, got %d", recentTransactions, len(view.RecentTransactions))
	}
	if !view.RecentTransactions[0].CreatedAt.Equal(base.Add(11 * time.Hour)) {
		t.Fatalf("expected newest transaction first, got %s", view.RecentTransactions[0].CreatedAt)
	}
	if view.UnreadNotifications != 2 {
		t.Fatalf("expected 2 unread notifications, got %d", view.UnreadNotifications)
	}
}

func TestGet_EmptyCustomer(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Get(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.TotalSavings.IsZero() || view.ActiveCredits != 0 || len(view.RecentCredits) != 0 {
		t.Fatalf("expected an empty dashboard, got %+v", view)
	}
}

func TestGet_UnknownUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Get(context.Background(), "ghost"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected identity.ErrNotFound, got %v", err)
	}
}

func TestHandler_RequiresUser(t *testing.T) {
	f := newFixture(t)
	app := fiber.New()
	app.Get("/dashboard", NewHandler(f.svc).Get)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
}
