// Package twilio sends outbound WhatsApp messages through the Twilio
// Messages REST API.
package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig indicates invalid sender configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrSendFailed indicates a non-2xx response from the API.
	ErrSendFailed = errors.New("message send failed")
)

const defaultBaseURL = "https://api.twilio.com"

// Config holds Twilio credentials and addressing.
type Config struct {
	// AccountSID is the Twilio account identifier.
	AccountSID string
	// AuthToken is the API auth token.
	AuthToken string
	// From is the sending WhatsApp number, with or without the
	// "whatsapp:" scheme.
	From string
	// BaseURL overrides the API endpoint. Used by tests.
	BaseURL string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.AccountSID == "" {
		return fmt.Errorf("%w: account SID is required", ErrInvalidConfig)
	}
	if c.AuthToken == "" {
		return fmt.Errorf("%w: auth token is required", ErrInvalidConfig)
	}
	if c.From == "" {
		return fmt.Errorf("%w: from number is required", ErrInvalidConfig)
	}
	return nil
}

// Sender delivers WhatsApp messages.
type Sender struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSender creates a Twilio sender.
func NewSender(config Config, logger *zap.Logger) (*Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

// whatsappAddress ensures the "whatsapp:" scheme on a number.
func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// Send delivers body to a WhatsApp number. The to value may carry the
// "whatsapp:" scheme or be a bare number.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: recipient is required", ErrSendFailed)
	}

	form := url.Values{}
	form.Set("From", whatsappAddress(s.config.From))
	form.Set("To", whatsappAddress(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.config.BaseURL, "/"), s.config.AccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode,
			strings.TrimSpace(string(payload)))
	}

	s.logger.Debug("message sent", zap.String("to", whatsappAddress(to)))
	return nil
}
