package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is the in-memory Store used by tests and single-node dev runs.
// WithinTx snapshots the whole state and restores it when the callback fails,
// giving the same all-or-nothing behavior as the database-backed store.
type MemStore struct {
	mu         sync.Mutex
	balances   map[int]*Balance
	backoffice map[Counter]int
	sales      map[int64]SaleLineItem
	journal    []JournalEntry
	nextSale   int64
	nextEntry  int64
	now        func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		balances:   make(map[int]*Balance),
		backoffice: make(map[Counter]int),
		sales:      make(map[int64]SaleLineItem),
		now:        time.Now,
	}
}

// Provision creates a zeroed balance row for an employee, as the
// first-contact path does in production.
func (m *MemStore) Provision(employeeID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[employeeID]; !ok {
		m.balances[employeeID] = &Balance{UpdatedAt: m.now()}
	}
}

// SetBalance overwrites an employee's counters (test seeding).
func (m *MemStore) SetBalance(employeeID int, b Balance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.UpdatedAt = m.now()
	m.balances[employeeID] = &b
}

// SetBackoffice overwrites a central counter (test seeding).
func (m *MemStore) SetBackoffice(c Counter, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoffice[c] = qty
}

// Journal returns a copy of every journal entry, in append order.
func (m *MemStore) Journal() []JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]JournalEntry, len(m.journal))
	copy(out, m.journal)
	return out
}

func (m *MemStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memTx{store: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *MemStore) Balance(_ context.Context, employeeID int) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(employeeID)
}

func (m *MemStore) ListSales(_ context.Context, key Key) ([]SaleLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveSalesLocked(key), nil
}

func (m *MemStore) GetSale(_ context.Context, id int64) (*SaleLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSaleLocked(id), nil
}

func (m *MemStore) Backoffice(_ context.Context) (map[Counter]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Counter]int, len(m.backoffice))
	for c, q := range m.backoffice {
		out[c] = q
	}
	return out, nil
}

type memSnapshot struct {
	balances   map[int]*Balance
	backoffice map[Counter]int
	sales      map[int64]SaleLineItem
	journal    []JournalEntry
	nextSale   int64
	nextEntry  int64
}

func (m *MemStore) snapshot() memSnapshot {
	s := memSnapshot{
		balances:   make(map[int]*Balance, len(m.balances)),
		backoffice: make(map[Counter]int, len(m.backoffice)),
		sales:      make(map[int64]SaleLineItem, len(m.sales)),
		journal:    make([]JournalEntry, len(m.journal)),
		nextSale:   m.nextSale,
		nextEntry:  m.nextEntry,
	}
	for id, b := range m.balances {
		cp := *b
		s.balances[id] = &cp
	}
	for c, q := range m.backoffice {
		s.backoffice[c] = q
	}
	for id, sale := range m.sales {
		s.sales[id] = sale
	}
	copy(s.journal, m.journal)
	return s
}

func (m *MemStore) restore(s memSnapshot) {
	m.balances = s.balances
	m.backoffice = s.backoffice
	m.sales = s.sales
	m.journal = s.journal
	m.nextSale = s.nextSale
	m.nextEntry = s.nextEntry
}

func (m *MemStore) balanceLocked(employeeID int) (Balance, error) {
	b, ok := m.balances[employeeID]
	if !ok {
		return Balance{}, ErrNoBalance
	}
	return *b, nil
}

func (m *MemStore) getSaleLocked(id int64) *SaleLineItem {
	if s, ok := m.sales[id]; ok {
		cp := s
		return &cp
	}
	return nil
}

func (m *MemStore) liveSalesLocked(key Key) []SaleLineItem {
	var out []SaleLineItem
	for _, s := range m.sales {
		if s.Key() == key {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memTx mutates the store directly; WithinTx owns the lock and the rollback.
type memTx struct {
	store *MemStore
}

func (t *memTx) Balance(_ context.Context, employeeID int) (Balance, error) {
	return t.store.balanceLocked(employeeID)
}

func (t *memTx) AdjustBalance(_ context.Context, employeeID int, c Counter, delta int) error {
	b, ok := t.store.balances[employeeID]
	if !ok {
		return ErrNoBalance
	}
	if b.Get(c)+delta < 0 {
		return ErrNegativeBalance
	}
	b.Add(c, delta)
	return nil
}

func (t *memTx) AdjustBackoffice(_ context.Context, c Counter, delta int) error {
	if t.store.backoffice[c]+delta < 0 {
		return ErrNegativeBalance
	}
	t.store.backoffice[c] += delta
	return nil
}

func (t *memTx) TouchBalance(_ context.Context, employeeID int) error {
	b, ok := t.store.balances[employeeID]
	if !ok {
		return ErrNoBalance
	}
	b.UpdatedAt = t.store.now()
	return nil
}

func (t *memTx) LiveSales(_ context.Context, key Key) ([]SaleLineItem, error) {
	return t.store.liveSalesLocked(key), nil
}

func (t *memTx) DeleteSales(_ context.Context, key Key) (int, error) {
	n := 0
	for id, s := range t.store.sales {
		if s.Key() == key {
			delete(t.store.sales, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetSale(_ context.Context, id int64) (*SaleLineItem, error) {
	return t.store.getSaleLocked(id), nil
}

func (t *memTx) DeleteSale(_ context.Context, id int64) (bool, error) {
	if _, ok := t.store.sales[id]; !ok {
		return false, nil
	}
	delete(t.store.sales, id)
	return true, nil
}

func (t *memTx) InsertSale(_ context.Context, s *SaleLineItem) error {
	t.store.nextSale++
	s.ID = t.store.nextSale
	s.CreatedAt = t.store.now()
	t.store.sales[s.ID] = *s
	return nil
}

func (t *memTx) AppendJournal(_ context.Context, e *JournalEntry) error {
	t.store.nextEntry++
	e.ID = t.store.nextEntry
	e.CreatedAt = t.store.now()
	t.store.journal = append(t.store.journal, *e)
	return nil
}

func (t *memTx) SaleJournal(_ context.Context, saleIDs []int64) ([]JournalEntry, error) {
	wanted := make(map[int64]bool, len(saleIDs))
	for _, id := range saleIDs {
		wanted[id] = true
	}
	var out []JournalEntry
	for _, e := range t.store.journal {
		if e.Reason == ReasonSale && e.SourceRef != nil && wanted[*e.SourceRef] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) FindLiveIdentifier(_ context.Context, identifier string, exclude Key) (*SaleLineItem, error) {
	for _, s := range t.store.sales {
		if s.Identifier == identifier && s.Kind.UnitCounted() && s.Key() != exclude {
			cp := s
			return &cp, nil
		}
	}
	return nil, nil
}
