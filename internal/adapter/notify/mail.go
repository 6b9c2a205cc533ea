package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"chainpay-gateway/config"
	"chainpay-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient abstracts the HTTP transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// MailSender implements ports.MailSender by POSTing to an external
// email dispatch bridge. Delivery is the bridge's problem; a 2xx here
// only means the bridge accepted the job.
type MailSender struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewMailSender creates a new MailSender from config.
func NewMailSender(cfg config.MailConfig, log zerolog.Logger) *MailSender {
	return &MailSender{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// NewMailSenderWithHTTP creates a MailSender with a custom transport.
func NewMailSenderWithHTTP(baseURL string, httpClient HTTPClient, log zerolog.Logger) *MailSender {
	return &MailSender{baseURL: baseURL, httpClient: httpClient, log: log}
}

// SendWithdrawalEmail dispatches a withdrawal decision email.
func (s *MailSender) SendWithdrawalEmail(ctx context.Context, email ports.WithdrawalEmail) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal withdrawal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/emails/withdrawal", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email bridge returned status %d", resp.StatusCode)
	}

	s.log.Debug().
		Str("merchant_id", email.MerchantID.String()).
		Bool("rejected", email.Rejected).
		Msg("withdrawal email dispatched")

	return nil
}

var _ ports.MailSender = (*MailSender)(nil)
