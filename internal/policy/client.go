package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// Client talks to the remote policy decision service over HTTP. It is safe for
// concurrent use; the only shared state is the underlying connection pool and
// the circuit breaker.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger attaches a logger for transport-level events.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a Client. Every call is bounded by the given timeout
// and guarded by a circuit breaker: once the remote fails repeatedly, calls
// short-circuit to ErrRemoteUnavailable until the breaker recovers.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "policy",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("policy breaker state change",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Rejections are the remote answering, and caller cancellations
			// say nothing about remote health; only transport failures
			// should trip the breaker.
			return err == nil ||
				errors.Is(err, ErrRemoteRejected) ||
				errors.Is(err, context.Canceled)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type authorizeRequest struct {
	ActorType    string `json:"actor_type"`
	ActorID      string `json:"actor_id"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

type authorizeResponse struct {
	Allowed bool `json:"allowed"`
}

// Authorize asks the decision service whether the actor may perform the action
// on the resource. Actor and resource must be concrete; wildcards are rejected
// before any network call.
func (c *Client) Authorize(ctx context.Context, actor Value, action string, resource Value) (bool, error) {
	if !actor.IsConcrete() {
		return false, fmt.Errorf("policy: actor must not be a wildcard: %w", shared.ErrInvalidRequest)
	}
	if !resource.IsConcrete() {
		return false, fmt.Errorf("policy: resource must not be a wildcard: %w", shared.ErrInvalidRequest)
	}
	if action == "" {
		return false, fmt.Errorf("policy: action required: %w", shared.ErrInvalidRequest)
	}

	body, err := c.post(ctx, "api/authorize", authorizeRequest{
		ActorType:    actor.Type,
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: resource.Type,
		ResourceID:   resource.ID,
	})
	if err != nil {
		return false, err
	}

	var result authorizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("policy: decode authorize response: %w", err)
	}
	return result.Allowed, nil
}

// Insert submits a single fact insertion.
func (c *Client) Insert(ctx context.Context, fact Fact) error {
	_, err := c.post(ctx, "api/batch", []changeset{{Inserts: []Fact{fact}}})
	return err
}

// Delete submits a single pattern deletion. Nil pattern fields are wildcards
// and may match multiple facts.
func (c *Client) Delete(ctx context.Context, pattern FactPattern) error {
	_, err := c.post(ctx, "api/batch", []changeset{{Deletes: []FactPattern{pattern}}})
	return err
}

// ApplyBatch runs the builder callback and submits the accumulated changesets
// as one network call. The transport is all-or-nothing; atomic application of
// the entries is the remote service's guarantee.
func (c *Client) ApplyBatch(ctx context.Context, fn func(*Batch)) error {
	var batch Batch
	fn(&batch)
	if batch.Empty() {
		return nil
	}
	_, err := c.post(ctx, "api/batch", batch.changes)
	return err
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doPost(ctx, endpoint, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("policy: circuit open: %w", ErrRemoteUnavailable)
		}
		return nil, err
	}
	body, _ := result.([]byte)
	return body, nil
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("policy: encode request: %w", err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("policy: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("policy request failed",
			slog.String("endpoint", endpoint),
			slog.Any("error", err))
		return nil, fmt.Errorf("policy: %w: %w", err, ErrRemoteUnavailable)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("policy: read response: %w: %w", err, ErrRemoteUnavailable)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var upstream struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &upstream)
		c.logger.Error("policy request rejected",
			slog.String("endpoint", endpoint),
			slog.Int("status", res.StatusCode),
			slog.String("message", upstream.Message))
		return nil, &RemoteError{Status: res.StatusCode, Message: upstream.Message}
	}

	return body, nil
}
