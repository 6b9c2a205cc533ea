package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chainpay-gateway/config"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.LedgerClient against the blockchain's public
// read API. Strictly read-only.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a new ledger Client from config.
func NewClient(cfg config.LedgerConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        log,
	}
}

// NewClientWithHTTP creates a Client with a custom transport.
func NewClientWithHTTP(baseURL string, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient, log: log}
}

type operationRecord struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SourceAccount string          `json:"source_account"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Amount        decimal.Decimal `json:"amount"`
	AssetCode     string          `json:"asset_code"`
	TxHash        string          `json:"transaction_hash"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

type operationsResponse struct {
	Records    []operationRecord `json:"records"`
	NextCursor string            `json:"next_cursor"`
}

type transactionResponse struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// Operations fetches one page of operations for the account, ascending,
// starting after cursor.
func (c *Client) Operations(ctx context.Context, account, cursor string, limit int) (*ports.LedgerPage, error) {
	u, err := url.Parse(fmt.Sprintf("%s/accounts/%s/operations", c.baseURL, url.PathEscape(account)))
	if err != nil {
		return nil, fmt.Errorf("build operations url: %w", err)
	}
	q := u.Query()
	q.Set("order", "asc")
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	var resp operationsResponse
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}

	page := &ports.LedgerPage{NextCursor: resp.NextCursor}
	for _, rec := range resp.Records {
		op := domain.LedgerOperation{
			ID:            rec.ID,
			Type:          rec.Type,
			SourceAccount: rec.SourceAccount,
			From:          rec.From,
			To:            rec.To,
			Amount:        rec.Amount,
			Asset:         rec.AssetCode,
			TxHash:        rec.TxHash,
		}
		if rec.CreatedAt != nil {
			op.CreatedAt = *rec.CreatedAt
		}
		page.Operations = append(page.Operations, op)
	}
	return page, nil
}

// TransactionTime resolves the creation time of a transaction by hash.
func (c *Client) TransactionTime(ctx context.Context, hash string) (time.Time, error) {
	u := fmt.Sprintf("%s/transactions/%s", c.baseURL, url.PathEscape(hash))

	var resp transactionResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.CreatedAt, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return apperror.ErrUpstreamTimeout(err)
		}
		return apperror.ErrUpstreamUnavailable(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperror.ErrUpstreamUnavailable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperror.ErrNotFound("ledger record")
	case resp.StatusCode >= 500:
		c.log.Warn().Int("status", resp.StatusCode).Str("url", rawURL).Msg("ledger upstream error")
		return apperror.ErrUpstreamUnavailable(fmt.Errorf("upstream status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return apperror.New("LEDGER_002", fmt.Sprintf("unexpected ledger status %d", resp.StatusCode), 502)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperror.ErrUpstreamUnavailable(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var _ ports.LedgerClient = (*Client)(nil)
