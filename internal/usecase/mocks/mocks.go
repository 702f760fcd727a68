// Package mocks provides hand-rolled mocks for usecase interfaces.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/orfin/ledgerapi/internal/domain"
	"github.com/orfin/ledgerapi/internal/usecase"
)

// MockTx is a no-op usecase.Transaction that records its outcome.
type MockTx struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTx) Commit(ctx context.Context) error   { t.Committed = true; return nil }
func (t *MockTx) Rollback(ctx context.Context) error { t.RolledBack = true; return nil }
func (t *MockTx) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &MockTx{}, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	Last      *MockTx
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.Last = &MockTx{}
	return m.Last, nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu           sync.Mutex
	GenerateFunc func() string
	n            int
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

// Generate returns monotonically increasing ULID-shaped IDs by default.
func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	id := []byte("01J8ZQ4N9V2M5X7P3K6R1T8W00")
	id[24] = alphabet[(m.n/32)%32]
	id[25] = alphabet[m.n%32]
	return string(id)
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	ledgers map[string]*domain.Ledger
	nextID  uint32

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, ledger *domain.Ledger) error
	AllocateEngineIDFunc func(ctx context.Context, tx usecase.Transaction) (uint32, error)
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Ledger, error)
	ListFunc             func(ctx context.Context, q usecase.ListQuery) ([]*domain.Ledger, error)
	SoftDeleteFunc       func(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{ledgers: make(map[string]*domain.Ledger)}
}

func (m *MockLedgerRepository) Create(ctx context.Context, tx usecase.Transaction, ledger *domain.Ledger) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, ledger)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers[ledger.ID] = ledger
	return nil
}

func (m *MockLedgerRepository) AllocateEngineID(ctx context.Context, tx usecase.Transaction) (uint32, error) {
	if m.AllocateEngineIDFunc != nil {
		return m.AllocateEngineIDFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id string) (*domain.Ledger, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.ledgers[id]; ok {
		return l, nil
	}
	return nil, domain.ErrLedgerNotFound
}

func (m *MockLedgerRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Ledger, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Ledger
	for _, l := range m.ledgers {
		out = append(out, l)
	}
	return out, nil
}

func (m *MockLedgerRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, tx, id, deletedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.ledgers[id]; ok {
		l.DeletedAt = &deletedAt
	}
	return nil
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc         func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsFunc        func(ctx context.Context, ids []string) ([]*domain.Account, error)
	GetByExternalIDFunc func(ctx context.Context, externalID string) (*domain.Account, error)
	ListFunc            func(ctx context.Context, q usecase.ListQuery) ([]*domain.Account, error)
	SoftDeleteFunc      func(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAccountRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.ExternalID != nil && *a.ExternalID == externalID {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Account
	for _, a := range m.accounts {
		if q.LedgerID == "" || a.LedgerID == q.LedgerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockAccountRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, id string, deletedAt time.Time) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, tx, id, deletedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.DeletedAt = &deletedAt
	}
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.Transaction

	CreateFunc             func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByExternalIDFunc    func(ctx context.Context, externalID string) (*domain.Transaction, error)
	UpdateStatusFunc       func(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error
	ListFunc               func(ctx context.Context, q usecase.ListQuery) ([]*domain.Transaction, error)
	SumPostedByAccountFunc func(ctx context.Context, accountID string) (uint64, uint64, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{txns: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.txns[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.txns {
		if t.ExternalID == externalID {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.txns[id]; ok {
		t.Status = status
		t.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, q usecase.ListQuery) ([]*domain.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.txns {
		out = append(out, t)
	}
	return out, nil
}

func (m *MockTransactionRepository) SumPostedByAccount(ctx context.Context, accountID string) (uint64, uint64, error) {
	if m.SumPostedByAccountFunc != nil {
		return m.SumPostedByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var debits, credits uint64
	for _, t := range m.txns {
		if t.Status != domain.StatusPosted {
			continue
		}
		for _, e := range t.Entries {
			if e.AccountID != accountID {
				continue
			}
			if e.Direction == domain.DirectionDebit {
				debits += e.Amount
			} else {
				credits += e.Amount
			}
		}
	}
	return debits, credits, nil
}

// MockIdempotencyRepository is an in-memory IdempotencyRepository enforcing
// the (key, endpoint) unique constraint.
type MockIdempotencyRepository struct {
	mu      sync.Mutex
	records map[[2]string]*domain.IdempotencyRecord

	GetFunc         func(ctx context.Context, tx usecase.Transaction, key, endpoint string) (*domain.IdempotencyRecord, error)
	CreateFunc      func(ctx context.Context, tx usecase.Transaction, rec *domain.IdempotencyRecord) error
	SetResponseFunc func(ctx context.Context, tx usecase.Transaction, key, endpoint string, status int, body []byte) error
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{records: make(map[[2]string]*domain.IdempotencyRecord)}
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, tx usecase.Transaction, key, endpoint string) (*domain.IdempotencyRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, tx, key, endpoint)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[[2]string{key, endpoint}]; ok {
		return rec, nil
	}
	return nil, domain.ErrRecordNotFound
}

func (m *MockIdempotencyRepository) Create(ctx context.Context, tx usecase.Transaction, rec *domain.IdempotencyRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]string{rec.Key, rec.Endpoint}
	if _, ok := m.records[k]; ok {
		return domain.ErrIdempotencyInFlight
	}
	m.records[k] = rec
	return nil
}

func (m *MockIdempotencyRepository) SetResponse(ctx context.Context, tx usecase.Transaction, key, endpoint string, status int, body []byte) error {
	if m.SetResponseFunc != nil {
		return m.SetResponseFunc(ctx, tx, key, endpoint, status, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[[2]string{key, endpoint}]; ok {
		rec.ResponseStatus = status
		rec.ResponseBody = body
	}
	return nil
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	Deletes []string

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, domain.ErrRecordNotFound
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	m.Deletes = append(m.Deletes, key)
	return nil
}
