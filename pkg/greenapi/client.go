package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsenquiry/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
)

// Client is the outbound Green API surface the service consumes.
type Client interface {
	SendMessage(ctx context.Context, chatID, message string) error
	CheckState(ctx context.Context) (*StateResponse, error)
}

// Config holds the credentials and tuning for one Green API instance.
type Config struct {
	BaseURL         string
	InstanceID      string
	APIToken        string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerReset    time.Duration
}

// SendMessageRequest is the sendMessage endpoint body.
type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// SendMessageResponse is the sendMessage endpoint response.
type SendMessageResponse struct {
	IDMessage string `json:"idMessage"`
}

// StateResponse is the getStateInstance endpoint response.
type StateResponse struct {
	StateInstance string `json:"stateInstance"`
}

type apiClient struct {
	cfg     Config
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewClient builds a Green API client with its own circuit breaker. All
// calls are time-bounded by both the passed context and the configured
// HTTP timeout.
func NewClient(cfg Config, logger *logrus.Logger) Client {
	return &apiClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: circuitbreaker.NewWithLogger("greenapi", cfg.BreakerFailures, cfg.BreakerReset, logger),
		logger:  logger,
	}
}

// SendMessage sends a text message to a chat.
func (c *apiClient) SendMessage(ctx context.Context, chatID, message string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		body := SendMessageRequest{ChatID: chatID, Message: message}
		var resp SendMessageResponse
		if err := c.post(ctx, "sendMessage", body, &resp); err != nil {
			return err
		}
		c.logger.WithField("provider_message_id", resp.IDMessage).Debug("Outbound message accepted by provider")
		return nil
	})
}

// CheckState queries the instance authorization state. Used by the
// webhook status endpoint as a provider liveness probe.
func (c *apiClient) CheckState(ctx context.Context) (*StateResponse, error) {
	var resp StateResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.get(ctx, "getStateInstance", &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// endpointURL builds the Green API URL shape:
// {base}/waInstance{id}/{method}/{token}
func (c *apiClient) endpointURL(method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.cfg.BaseURL, c.cfg.InstanceID, method, c.cfg.APIToken)
}

func (c *apiClient) post(ctx context.Context, method string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(method), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, method, out)
}

func (c *apiClient) get(ctx context.Context, method string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(method), nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	return c.do(req, method, out)
}

func (c *apiClient) do(req *http.Request, method string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The token is part of the URL; never echo the URL in errors.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
	}
	return nil
}
