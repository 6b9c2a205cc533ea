package service

import (
	"context"
	"time"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// LedgerSyncService implements ports.ReconciliationService. It walks
// the remote ledger's operation pages for an account, ascending, and
// enriches operations that carry no inline timestamp with the creation
// time of their owning transaction.
//
// The walk is deliberately slow: a rate limiter spaces page requests so
// a large history does not hammer the public ledger API. Transaction
// times are immutable, so lookups go through a process-local cache and,
// when configured, a shared Redis cache before touching the ledger.
type LedgerSyncService struct {
	ledger   ports.LedgerClient
	shared   ports.TimestampCache // optional, may be nil
	local    *gocache.Cache
	limiter  *rate.Limiter
	pageSize int
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewLedgerSyncService creates a new LedgerSyncService. pageDelay is
// the minimum spacing between page requests; cacheTTL bounds both the
// local and the shared timestamp cache entries.
func NewLedgerSyncService(
	ledger ports.LedgerClient,
	shared ports.TimestampCache,
	pageSize int,
	pageDelay time.Duration,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *LedgerSyncService {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &LedgerSyncService{
		ledger:   ledger,
		shared:   shared,
		local:    gocache.New(cacheTTL, 2*cacheTTL),
		limiter:  rate.NewLimiter(rate.Every(pageDelay), 1),
		pageSize: pageSize,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// SyncOperations pulls every operation page for the account starting
// after startCursor (empty = from the beginning). On an upstream
// failure mid-walk it returns what it has collected so far with
// Partial set and LastCursor pointing at the last page that succeeded,
// so the caller can resume instead of restarting.
func (s *LedgerSyncService) SyncOperations(ctx context.Context, account, startCursor string) (*ports.SyncResult, error) {
	if account == "" {
		return nil, apperror.Validation("account is required")
	}

	result := &ports.SyncResult{LastCursor: startCursor}
	cursor := startCursor

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			result.Partial = true
			return result, apperror.Wrap("LEDGER_001", "ledger sync interrupted", 504, err)
		}

		page, err := s.ledger.Operations(ctx, account, cursor, s.pageSize)
		if err != nil {
			s.log.Warn().Err(err).
				Str("account", account).
				Str("cursor", cursor).
				Int("pages", result.Pages).
				Msg("ledger page fetch failed, returning partial result")
			result.Partial = true
			return result, err
		}
		result.Pages++

		if len(page.Operations) == 0 {
			break
		}

		for i := range page.Operations {
			op := &page.Operations[i]
			if op.CreatedAt.IsZero() && op.TxHash != "" {
				s.enrichTimestamp(ctx, op)
			}
		}

		result.Operations = append(result.Operations, page.Operations...)
		result.LastCursor = page.NextCursor
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	s.log.Info().
		Str("account", account).
		Int("operations", len(result.Operations)).
		Int("pages", result.Pages).
		Msg("ledger sync complete")

	return result, nil
}

// enrichTimestamp resolves the operation's transaction time. Best
// effort: a failed lookup leaves the zero time in place rather than
// failing the whole page.
func (s *LedgerSyncService) enrichTimestamp(ctx context.Context, op *domain.LedgerOperation) {
	if t, ok := s.local.Get(op.TxHash); ok {
		op.CreatedAt = t.(time.Time)
		return
	}

	if s.shared != nil {
		t, ok, err := s.shared.Get(ctx, op.TxHash)
		if err != nil {
			s.log.Warn().Err(err).Str("tx_hash", op.TxHash).Msg("shared timestamp cache read failed")
		} else if ok {
			op.CreatedAt = t
			s.local.Set(op.TxHash, t, s.cacheTTL)
			return
		}
	}

	t, err := s.ledger.TransactionTime(ctx, op.TxHash)
	if err != nil {
		s.log.Warn().Err(err).
			Str("tx_hash", op.TxHash).
			Msg("transaction time lookup failed, leaving timestamp unset")
		return
	}

	op.CreatedAt = t
	s.local.Set(op.TxHash, t, s.cacheTTL)
	if s.shared != nil {
		if err := s.shared.Set(ctx, op.TxHash, t, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("tx_hash", op.TxHash).Msg("shared timestamp cache write failed")
		}
	}
}

var _ ports.ReconciliationService = (*LedgerSyncService)(nil)
