package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type memState struct {
	accounts   map[string]Account
	entries    map[string]Entry
	references map[string]struct{}
	credits    map[string]Credit
	repayments map[string]Repayment
	// insertion order, used as a tiebreaker for equal timestamps
	entrySeq  map[string]int
	creditSeq map[string]int
	seq       int
}

func newMemState() *memState {
	return &memState{
		accounts:   make(map[string]Account),
		entries:    make(map[string]Entry),
		references: make(map[string]struct{}),
		credits:    make(map[string]Credit),
		repayments: make(map[string]Repayment),
		entrySeq:   make(map[string]int),
		creditSeq:  make(map[string]int),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:   make(map[string]Account, len(s.accounts)),
		entries:    make(map[string]Entry, len(s.entries)),
		references: make(map[string]struct{}, len(s.references)),
		credits:    make(map[string]Credit, len(s.credits)),
		repayments: make(map[string]Repayment, len(s.repayments)),
		entrySeq:   make(map[string]int, len(s.entrySeq)),
		creditSeq:  make(map[string]int, len(s.creditSeq)),
		seq:        s.seq,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k := range s.references {
		c.references[k] = struct{}{}
	}
	for k, v := range s.credits {
		c.credits[k] = v
	}
	for k, v := range s.repayments {
		c.repayments[k] = v
	}
	for k, v := range s.entrySeq {
		c.entrySeq[k] = v
	}
	for k, v := range s.creditSeq {
		c.creditSeq[k] = v
	}
	return c
}

// InMemoryStore is a concurrency-safe Store for tests and local development.
// Transactions are serialized and run against a staged copy of the state that
// replaces the live state only when fn succeeds.
type InMemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{state: newMemState()}
}

// Atomic runs fn against a staged copy and commits it if fn returns nil.
func (m *InMemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.state.clone()
	if err := fn(ctx, &memTx{state: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

func (m *InMemoryStore) Account(_ context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.account(id)
}

func (m *InMemoryStore) Accounts(_ context.Context, filter AccountFilter) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listAccounts(filter), nil
}

func (m *InMemoryStore) Entry(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.entry(id)
}

func (m *InMemoryStore) Entries(_ context.Context, filter EntryFilter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listEntries(filter), nil
}

func (m *InMemoryStore) Credit(_ context.Context, id string) (Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.credit(id)
}

func (m *InMemoryStore) Credits(_ context.Context, filter CreditFilter) ([]Credit, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	credits, total := m.state.listCredits(filter)
	return credits, total, nil
}

// CreditCounts counts credits per status in one consistent read.
func (m *InMemoryStore) CreditCounts(_ context.Context) (map[CreditStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.countCredits(), nil
}

func (m *InMemoryStore) Repayments(_ context.Context, creditID string) ([]Repayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listRepayments(creditID), nil
}

type memTx struct {
	state *memState
}

func (t *memTx) Account(_ context.Context, id string) (Account, error) {
	return t.state.account(id)
}

func (t *memTx) Accounts(_ context.Context, filter AccountFilter) ([]Account, error) {
	return t.state.listAccounts(filter), nil
}

func (t *memTx) Entry(_ context.Context, id string) (Entry, error) {
	return t.state.entry(id)
}

func (t *memTx) Entries(_ context.Context, filter EntryFilter) ([]Entry, error) {
	return t.state.listEntries(filter), nil
}

func (t *memTx) Credit(_ context.Context, id string) (Credit, error) {
	return t.state.credit(id)
}

func (t *memTx) Credits(_ context.Context, filter CreditFilter) ([]Credit, int, error) {
	credits, total := t.state.listCredits(filter)
	return credits, total, nil
}

func (t *memTx) CreditCounts(_ context.Context) (map[CreditStatus]int, error) {
	return t.state.countCredits(), nil
}

func (t *memTx) Repayments(_ context.Context, creditID string) ([]Repayment, error) {
	return t.state.listRepayments(creditID), nil
}

func (t *memTx) LockAccount(_ context.Context, id string) (Account, error) {
	return t.state.account(id)
}

func (t *memTx) InsertAccount(_ context.Context, account Account) error {
	if _, exists := t.state.accounts[account.ID]; exists {
		return ErrDuplicateReference
	}
	for _, a := range t.state.accounts {
		if a.AccountNumber == account.AccountNumber {
			return ErrDuplicateReference
		}
	}
	t.state.accounts[account.ID] = account
	return nil
}

func (t *memTx) UpdateAccount(_ context.Context, account Account) error {
	if _, exists := t.state.accounts[account.ID]; !exists {
		return ErrNotFound
	}
	t.state.accounts[account.ID] = account
	return nil
}

func (t *memTx) InsertEntry(_ context.Context, entry Entry) error {
	if _, exists := t.state.references[entry.Reference]; exists {
		return ErrDuplicateReference
	}
	t.state.seq++
	t.state.entries[entry.ID] = entry
	t.state.entrySeq[entry.ID] = t.state.seq
	t.state.references[entry.Reference] = struct{}{}
	return nil
}

func (t *memTx) LockCredit(_ context.Context, id string) (Credit, error) {
	return t.state.credit(id)
}

func (t *memTx) InsertCredit(_ context.Context, credit Credit) error {
	if credit.Status == CreditPending {
		for _, c := range t.state.credits {
			if c.UserID == credit.UserID && c.Status == CreditPending {
				return ErrPendingCreditExists
			}
		}
	}
	t.state.seq++
	t.state.credits[credit.ID] = credit
	t.state.creditSeq[credit.ID] = t.state.seq
	return nil
}

func (t *memTx) UpdateCredit(_ context.Context, credit Credit) error {
	if _, exists := t.state.credits[credit.ID]; !exists {
		return ErrNotFound
	}
	t.state.credits[credit.ID] = credit
	return nil
}

func (t *memTx) InsertRepayment(_ context.Context, repayment Repayment) error {
	t.state.repayments[repayment.ID] = repayment
	return nil
}

func (t *memTx) HasPendingCredit(_ context.Context, userID string) (bool, error) {
	for _, c := range t.state.credits {
		if c.UserID == userID && c.Status == CreditPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) History(_ context.Context, userID string) (History, error) {
	h := History{SavingsTotal: decimal.Zero}
	for _, a := range t.state.accounts {
		if a.UserID == userID {
			h.SavingsTotal = h.SavingsTotal.Add(a.Balance)
		}
	}
	for _, c := range t.state.credits {
		if c.UserID == userID && c.Status == CreditCompleted {
			h.CompletedCredits++
		}
	}
	for _, e := range t.state.entries {
		if e.UserID == userID {
			h.TransactionCount++
		}
	}
	return h, nil
}

func (s *memState) account(id string) (Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *memState) entry(id string) (Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (s *memState) credit(id string) (Credit, error) {
	c, ok := s.credits[id]
	if !ok {
		return Credit{}, ErrNotFound
	}
	return c, nil
}

func (s *memState) listAccounts(filter AccountFilter) []Account {
	out := make([]Account, 0)
	for _, a := range s.accounts {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].AccountNumber > out[j].AccountNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *memState) listEntries(filter EntryFilter) []Entry {
	out := make([]Entry, 0)
	for _, e := range s.entries {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			continue
		}
		if filter.CreditID != "" && e.CreditID != filter.CreditID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && e.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.entrySeq[out[i].ID] > s.entrySeq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *memState) listCredits(filter CreditFilter) ([]Credit, int) {
	out := make([]Credit, 0)
	for _, c := range s.credits {
		if filter.UserID != "" && c.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.creditSeq[out[i].ID] > s.creditSeq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if filter.Skip > 0 {
		if filter.Skip >= len(out) {
			return []Credit{}, total
		}
		out = out[filter.Skip:]
	}
	if filter.Take > 0 && len(out) > filter.Take {
		out = out[:filter.Take]
	}
	return out, total
}

func (s *memState) countCredits() map[CreditStatus]int {
	counts := make(map[CreditStatus]int, len(CreditStatuses))
	for _, c := range s.credits {
		counts[c.Status]++
	}
	return counts
}

func (s *memState) listRepayments(creditID string) []Repayment {
	out := make([]Repayment, 0)
	for _, r := range s.repayments {
		if r.CreditID == creditID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.entrySeq[out[i].EntryID] > s.entrySeq[out[j].EntryID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
