package credit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/credisave/internal/ledger"
	"github.com/congo-pay/credisave/internal/logging"
	"github.com/congo-pay/credisave/internal/notification"
)

type stubDirectory map[string]Borrower

func (d stubDirectory) Borrower(_ context.Context, userID string) (Borrower, error) {
	b, ok := d[userID]
	if !ok {
		return Borrower{}, ErrUnknownBorrower
	}
	return b, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	return n.err
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	store    *ledger.InMemoryStore
	svc      *Service
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledger.NewInMemory()
	notifier := &recordingNotifier{}
	users := stubDirectory{
		"new-user": {ID: "new-user"},
		"saver":    {ID: "saver", KYCVerified: true},
		"admin":    {ID: "admin", KYCVerified: true},
	}
	svc := NewService(store, users, notifier, logging.Discard())
	f := &fixture{store: store, svc: svc, notifier: notifier, now: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedActiveCredit(t *testing.T, userID, total string) ledger.Credit {
	t.Helper()
	c, err := ledger.SeedCredit(context.Background(), f.store, ledger.Credit{
		UserID:             userID,
		Principal:          dec("5000"),
		InterestRate:       dec("10"),
		Tenure:             6,
		MonthlyPayment:     dec("856.07"),
		TotalRepayable:     dec(total),
		AmountPaid:         decimal.Zero,
		OutstandingBalance: dec(total),
		CreditScore:        750,
		Status:             ledger.CreditActive,
	})
	require.NoError(t, err)
	return c
}

func TestRequest_ScenarioA_NewUserPending(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Request(context.Background(), "new-user", RequestInput{Amount: dec("10000"), Tenure: 12})
	require.NoError(t, err)

	assert.False(t, res.AutoApproved)
	assert.Equal(t, 600, res.Credit.CreditScore)
	assert.True(t, res.Credit.InterestRate.Equal(dec("18")))
	assert.Equal(t, ledger.CreditPending, res.Credit.Status)
	assert.True(t, res.Credit.MonthlyPayment.Equal(dec("916.80")))
	assert.True(t, res.Credit.OutstandingBalance.Equal(res.Credit.TotalRepayable))
	assert.True(t, res.Credit.AmountPaid.IsZero())
	assert.Nil(t, res.Credit.ApprovedAt)
	assert.Nil(t, res.Credit.NextPaymentDate)
	assert.Empty(t, f.notifier.kinds())
}

func TestRequest_ScenarioB_AutoApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := ledger.SeedAccount(ctx, f.store, "saver", dec("10000"))
	require.NoError(t, err)

	res, err := f.svc.Request(ctx, "saver", RequestInput{Amount: dec("5000"), Tenure: 6, Purpose: "school fees"})
	require.NoError(t, err)

	assert.True(t, res.AutoApproved)
	assert.Equal(t, 750, res.Credit.CreditScore)
	assert.True(t, res.Credit.InterestRate.Equal(dec("10")))
	assert.Equal(t, ledger.CreditApproved, res.Credit.Status)
	require.NotNil(t, res.Credit.ApprovedAt)
	require.NotNil(t, res.Credit.NextPaymentDate)
	assert.Equal(t, f.now.Add(30*24*time.Hour), *res.Credit.NextPaymentDate)
	assert.Equal(t, []string{notification.KindCreditApproved}, f.notifier.kinds())
}

func TestRequest_AmountBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000001"), Tenure: 12})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	credits, err := f.svc.List(ctx, "new-user")
	require.NoError(t, err)
	assert.Empty(t, credits)

	_, err = f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000000"), Tenure: 12})
	assert.NoError(t, err)
}

func TestRequest_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	require.NoError(t, err)
	_, err = f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("2000"), Tenure: 12})
	assert.ErrorIs(t, err, ErrDuplicatePendingCredit)
}

func TestRequest_UnknownBorrower(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Request(context.Background(), "ghost", RequestInput{Amount: dec("1000"), Tenure: 12})
	assert.ErrorIs(t, err, ErrUnknownBorrower)
}

func TestApproveAndReject_OnlyFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, res.Credit.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditApproved, approved.Status)
	assert.Equal(t, "admin", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.NextPaymentDate)

	_, err = f.svc.Approve(ctx, res.Credit.ID, "admin")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = f.svc.Reject(ctx, res.Credit.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	assert.Equal(t, []string{notification.KindCreditApproved}, f.notifier.kinds())
}

func TestReject_RequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, res.Credit.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	rejected, err := f.svc.Reject(ctx, res.Credit.ID, "insufficient history")
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditRejected, rejected.Status)
	assert.Equal(t, "insufficient history", rejected.RejectionReason)
	assert.Equal(t, []string{notification.KindCreditRejected}, f.notifier.kinds())

	_, err = f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	assert.NoError(t, err, "a rejected credit no longer blocks new requests")
}

func TestApprove_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), "missing", "admin")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDisburseActivateAndRepayFromSavings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account, err := ledger.SeedAccount(ctx, f.store, "saver", dec("10000"))
	require.NoError(t, err)

	res, err := f.svc.Request(ctx, "saver", RequestInput{Amount: dec("5000"), Tenure: 6})
	require.NoError(t, err)
	require.True(t, res.AutoApproved)

	disbursed, entry, err := f.svc.Disburse(ctx, res.Credit.ID, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditDisbursed, disbursed.Status)
	require.NotNil(t, disbursed.DisbursedAt)
	assert.Equal(t, ledger.EntryCreditDisbursement, entry.Type)
	assert.Equal(t, account.ID, entry.AccountID)
	assert.Equal(t, res.Credit.ID, entry.CreditID)

	stored, err := f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("15000")))

	_, _, err = f.svc.Disburse(ctx, res.Credit.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	active, err := f.svc.Activate(ctx, res.Credit.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditActive, active.Status)

	repaid, err := f.svc.Repay(ctx, "saver", res.Credit.ID, RepayInput{Amount: dec("1000"), AccountID: account.ID})
	require.NoError(t, err)
	assert.True(t, repaid.Entry.BalanceAfter.Decimal.Equal(dec("14000")))
	assert.Equal(t, account.ID, repaid.Entry.AccountID)

	stored, err = f.store.Account(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(dec("14000")))
}

func TestDisburse_RejectsForeignAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := ledger.SeedAccount(ctx, f.store, "saver", dec("10000"))
	require.NoError(t, err)
	other, err := ledger.SeedAccount(ctx, f.store, "new-user", decimal.Zero)
	require.NoError(t, err)

	res, err := f.svc.Request(ctx, "saver", RequestInput{Amount: dec("5000"), Tenure: 6})
	require.NoError(t, err)

	_, _, err = f.svc.Disburse(ctx, res.Credit.ID, other.ID)
	assert.ErrorIs(t, err, ErrAccountNotOwned)

	c, err := f.store.Credit(ctx, res.Credit.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditApproved, c.Status)
}

func TestRepay_ScenarioC_FullRepaymentCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "5136.42")

	res, err := f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("5136.42")})
	require.NoError(t, err)
	assert.True(t, res.Credit.OutstandingBalance.IsZero())
	assert.True(t, res.Credit.AmountPaid.Equal(dec("5136.42")))
	assert.Equal(t, ledger.CreditCompleted, res.Credit.Status)
	assert.Nil(t, res.Credit.NextPaymentDate)
	assert.Equal(t, ledger.EntryCreditRepayment, res.Entry.Type)
	assert.Equal(t, ledger.StatusCompleted, res.Entry.Status)
	assert.Empty(t, res.Entry.AccountID)
	assert.True(t, res.Repayment.Amount.Equal(res.Entry.Amount))
	assert.Equal(t, res.Entry.ID, res.Repayment.EntryID)
	assert.Contains(t, f.notifier.kinds(), notification.KindCreditCompleted)
}

func TestRepay_ScenarioD_ExceedsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "5136.42")

	_, err := f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("6000")})
	assert.ErrorIs(t, err, ErrRepaymentExceedsBalance)

	_, err = f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("0")})
	assert.ErrorIs(t, err, ErrRepaymentExceedsBalance)

	stored, err := f.store.Credit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.Equal(dec("5136.42")))

	entries, err := f.store.Entries(ctx, ledger.EntryFilter{CreditID: c.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRepay_NotActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	require.NoError(t, err)

	_, err = f.svc.Repay(ctx, "new-user", res.Credit.ID, RepayInput{Amount: dec("10")})
	assert.ErrorIs(t, err, ErrCreditNotActive)
}

func TestRepay_OtherUsersCreditIsNotFound(t *testing.T) {
	f := newFixture(t)
	c := f.seedActiveCredit(t, "saver", "1000")
	_, err := f.svc.Repay(context.Background(), "new-user", c.ID, RepayInput{Amount: dec("10")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRepay_InsufficientSavingsLeavesCreditUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account, err := ledger.SeedAccount(ctx, f.store, "saver", dec("50"))
	require.NoError(t, err)
	c := f.seedActiveCredit(t, "saver", "1000")

	_, err = f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("100"), AccountID: account.ID})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	stored, err := f.store.Credit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.AmountPaid.IsZero())
	repayments, err := f.store.Repayments(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, repayments)
}

func TestRepay_SequenceKeepsBalancesConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "1000.00")

	prevPaid := decimal.Zero
	prevOutstanding := c.OutstandingBalance
	for _, amount := range []string{"0.01", "333.33", "250", "16.66"} {
		f.now = f.now.Add(time.Hour)
		res, err := f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec(amount)})
		require.NoError(t, err)

		assert.True(t, res.Credit.AmountPaid.GreaterThanOrEqual(prevPaid))
		assert.True(t, res.Credit.OutstandingBalance.LessThanOrEqual(prevOutstanding))
		assert.True(t, res.Credit.AmountPaid.Add(res.Credit.OutstandingBalance).Equal(res.Credit.TotalRepayable))
		require.NotNil(t, res.Credit.NextPaymentDate)
		assert.Equal(t, f.now.Add(30*24*time.Hour), *res.Credit.NextPaymentDate)
		assert.Equal(t, ledger.CreditActive, res.Credit.Status)
		prevPaid, prevOutstanding = res.Credit.AmountPaid, res.Credit.OutstandingBalance
	}

	detail, err := f.svc.Get(ctx, "saver", c.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, r := range detail.Repayments {
		sum = sum.Add(r.Amount)
	}
	assert.True(t, sum.Equal(detail.AmountPaid))
	assert.Len(t, detail.Repayments, 4)
}

func TestRepay_ConcurrentNeverOverpays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "1000")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("100")})
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case errors.Is(err, ErrRepaymentExceedsBalance), errors.Is(err, ErrCreditNotActive):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	stored, err := f.store.Credit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())
	assert.Equal(t, ledger.CreditCompleted, stored.Status)
}

func TestMarkDefaulted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "1000")

	defaulted, err := f.svc.MarkDefaulted(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.CreditDefaulted, defaulted.Status)
	assert.Nil(t, defaulted.NextPaymentDate)

	_, err = f.svc.MarkDefaulted(ctx, c.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("1")})
	assert.ErrorIs(t, err, ErrCreditNotActive)
}

func TestNotificationFailureDoesNotFailApproval(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("sink down")
	ctx := context.Background()
	res, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 12})
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, res.Credit.ID, "admin")
	assert.NoError(t, err)
}

func TestListingAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, user := range []string{"new-user", "admin"} {
		_, err := ledger.SeedCredit(ctx, f.store, ledger.Credit{UserID: user, Status: ledger.CreditPending})
		require.NoError(t, err)
	}
	f.seedActiveCredit(t, "saver", "100")

	page, err := f.svc.ListPending(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 10, page.Take)

	all, err := f.svc.ListAll(ctx, "", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Len(t, all.Data, 2)

	_, err = f.svc.ListAll(ctx, "BOGUS", 0, 2)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[ledger.CreditPending])
	assert.Equal(t, 1, stats[ledger.CreditActive])
	assert.Equal(t, 0, stats[ledger.CreditDefaulted])
}

func TestSchedule_OwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Request(ctx, "new-user", RequestInput{Amount: dec("1000"), Tenure: 3})
	require.NoError(t, err)

	c, schedule, err := f.svc.Schedule(ctx, "new-user", res.Credit.ID)
	require.NoError(t, err)
	assert.Len(t, schedule, 3)
	assert.Equal(t, res.Credit.ID, c.ID)
	assert.Equal(t, f.now.AddDate(0, 1, 0), schedule[0].DueDate)

	_, _, err = f.svc.Schedule(ctx, "saver", res.Credit.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRepayAndDisburse_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.seedActiveCredit(t, "saver", "1000")

	_, err := f.svc.Repay(ctx, "saver", c.ID, RepayInput{Amount: dec("10"), AccountID: "missing"})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = ledger.SeedAccount(ctx, f.store, "saver", dec("10000"))
	require.NoError(t, err)
	res, err := f.svc.Request(ctx, "saver", RequestInput{Amount: dec("5000"), Tenure: 6})
	require.NoError(t, err)
	_, _, err = f.svc.Disburse(ctx, res.Credit.ID, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, _, err = f.svc.Disburse(ctx, "no-such-credit", "")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}

type countingStore struct {
	*ledger.InMemoryStore
	listReads  int
	countReads int
}

func (s *countingStore) Credits(ctx context.Context, filter ledger.CreditFilter) ([]ledger.Credit, int, error) {
	s.listReads++
	return s.InMemoryStore.Credits(ctx, filter)
}

func (s *countingStore) CreditCounts(ctx context.Context) (map[ledger.CreditStatus]int, error) {
	s.countReads++
	return s.InMemoryStore.CreditCounts(ctx)
}

func TestStats_SingleRead(t *testing.T) {
	store := &countingStore{InMemoryStore: ledger.NewInMemory()}
	ctx := context.Background()
	for _, status := range []ledger.CreditStatus{ledger.CreditPending, ledger.CreditActive, ledger.CreditActive} {
		_, err := ledger.SeedCredit(ctx, store, ledger.Credit{UserID: "u-" + string(status), Status: status})
		require.NoError(t, err)
	}
	svc := NewService(store, stubDirectory{}, nil, logging.Discard())

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.countReads)
	assert.Zero(t, store.listReads)
	assert.Len(t, stats, len(ledger.CreditStatuses))
	assert.Equal(t, 1, stats[ledger.CreditPending])
	assert.Equal(t, 2, stats[ledger.CreditActive])
	assert.Equal(t, 0, stats[ledger.CreditCompleted])
}
