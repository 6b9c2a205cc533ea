package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"chainpay-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Merchant Repo ---

type inMemoryMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantRepo() *inMemoryMerchantRepo {
	return &inMemoryMerchantRepo{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if existing.Username == m.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *m
	r.merchants[m.ID] = &cp
	return nil
}

func (r *inMemoryMerchantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *inMemoryMerchantRepo) GetByUsername(ctx context.Context, username string) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.merchants {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryMerchantRepo) CreditBalance(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[merchantID]
	if !ok {
		return fmt.Errorf("merchant not found")
	}
	m.AvailableBalance = m.AvailableBalance.Add(amount)
	return nil
}

func (r *inMemoryMerchantRepo) DebitBalanceForWithdrawal(ctx context.Context, tx pgx.Tx, merchantID uuid.UUID, gross, net decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.merchants[merchantID]
	if !ok {
		return false, fmt.Errorf("merchant not found")
	}
	if m.AvailableBalance.LessThan(gross) {
		return false, nil
	}
	m.AvailableBalance = m.AvailableBalance.Sub(gross)
	m.TotalWithdrawn = m.TotalWithdrawn.Add(net)
	return true, nil
}

// --- In-Memory Payment Intent Repo ---

type inMemoryIntentRepo struct {
	mu      sync.RWMutex
	intents map[uuid.UUID]*domain.PaymentIntent
	// byExternal enforces the unique index on external_payment_id.
	byExternal map[string]uuid.UUID
}

func newInMemoryIntentRepo() *inMemoryIntentRepo {
	return &inMemoryIntentRepo{
		intents:    make(map[uuid.UUID]*domain.PaymentIntent),
		byExternal: make(map[string]uuid.UUID),
	}
}

func (r *inMemoryIntentRepo) Create(ctx context.Context, p *domain.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.intents[p.ID] = &cp
	return nil
}

func (r *inMemoryIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.intents[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryIntentRepo) GetByExternalID(ctx context.Context, externalPaymentID string) (*domain.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExternal[externalPaymentID]
	if !ok {
		return nil, nil
	}
	cp := *r.intents[id]
	return &cp, nil
}

func (r *inMemoryIntentRepo) BindExternalID(ctx context.Context, id uuid.UUID, externalPaymentID string, payer *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, taken := r.byExternal[externalPaymentID]; taken && owner != id {
		return false, nil
	}
	p, ok := r.intents[id]
	if !ok || p.Status != domain.PaymentStatusCreated {
		return false, nil
	}
	p.ExternalPaymentID = &externalPaymentID
	if payer != nil {
		p.Payer = payer
	}
	p.Status = domain.PaymentStatusPendingApproval
	r.byExternal[externalPaymentID] = id
	return true, nil
}

func (r *inMemoryIntentRepo) transition(id uuid.UUID, from []domain.PaymentStatus, to domain.PaymentStatus, mutate func(*domain.PaymentIntent)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.intents[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range from {
		if p.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	p.Status = to
	if mutate != nil {
		mutate(p)
	}
	return true, nil
}

func (r *inMemoryIntentRepo) MarkApproved(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	return r.transition(id,
		[]domain.PaymentStatus{domain.PaymentStatusPendingApproval},
		domain.PaymentStatusApproved,
		func(p *domain.PaymentIntent) { p.ApprovedAt = &now })
}

func (r *inMemoryIntentRepo) MarkPendingCompletion(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(id,
		[]domain.PaymentStatus{domain.PaymentStatusApproved},
		domain.PaymentStatusPendingCompletion, nil)
}

func (r *inMemoryIntentRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, txHash string) (bool, error) {
	now := time.Now()
	return r.transition(id,
		[]domain.PaymentStatus{domain.PaymentStatusPendingCompletion},
		domain.PaymentStatusCompleted,
		func(p *domain.PaymentIntent) {
			p.ExternalTxHash = &txHash
			p.CompletedAt = &now
		})
}

func (r *inMemoryIntentRepo) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	return r.transition(id,
		[]domain.PaymentStatus{
			domain.PaymentStatusCreated,
			domain.PaymentStatusPendingApproval,
			domain.PaymentStatusApproved,
		},
		domain.PaymentStatusCancelled,
		func(p *domain.PaymentIntent) { p.CancelledAt = &now })
}

func (r *inMemoryIntentRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	now := time.Now()
	return r.transition(id,
		[]domain.PaymentStatus{
			domain.PaymentStatusCreated,
			domain.PaymentStatusPendingApproval,
			domain.PaymentStatusApproved,
			domain.PaymentStatusPendingCompletion,
		},
		domain.PaymentStatusFailed,
		func(p *domain.PaymentIntent) {
			p.FailureReason = &reason
			p.FailedAt = &now
		})
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{txs: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.txs[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByPaymentIntentID(ctx context.Context, intentID uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.txs {
		if t.PaymentIntentID == intentID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.MerchantID == merchantID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	mu          sync.RWMutex
	withdrawals map[uuid.UUID]*domain.Withdrawal
}

func newInMemoryWithdrawalRepo() *inMemoryWithdrawalRepo {
	return &inMemoryWithdrawalRepo{withdrawals: make(map[uuid.UUID]*domain.Withdrawal)}
}

func (r *inMemoryWithdrawalRepo) Create(ctx context.Context, w *domain.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.withdrawals[w.ID] = &cp
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWithdrawalRepo) ListPending(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Withdrawal
	for _, w := range r.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryWithdrawalRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, externalTxRef, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	now := time.Now()
	w.Status = domain.WithdrawalStatusCompleted
	w.ExternalTxRef = &externalTxRef
	w.Note = note
	w.ProcessedAt = &now
	return true, nil
}

func (r *inMemoryWithdrawalRepo) MarkRejected(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok || w.Status != domain.WithdrawalStatusPending {
		return false, nil
	}
	now := time.Now()
	w.Status = domain.WithdrawalStatusRejected
	w.Note = note
	w.ProcessedAt = &now
	return true, nil
}

// --- In-Memory Fee Repo ---

type inMemoryFeeRepo struct {
	mu   sync.RWMutex
	fees []domain.PlatformFee
}

func newInMemoryFeeRepo() *inMemoryFeeRepo {
	return &inMemoryFeeRepo{}
}

func (r *inMemoryFeeRepo) Create(ctx context.Context, tx pgx.Tx, fee *domain.PlatformFee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fees = append(r.fees, *fee)
	return nil
}

func (r *inMemoryFeeRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]domain.PlatformFee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PlatformFee
	for _, f := range r.fees {
		if f.MerchantID == merchantID {
			out = append(out, f)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
