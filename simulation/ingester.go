package simulation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tushar4059x/the-hive-project/feed"
)

// AgentAuthHeader carries the agent credential on write requests.
const AgentAuthHeader = "X-Agent-Auth"

const defaultClientTimeout = 10 * time.Second

var (
	// ErrNilService is returned by NewServiceIngester without a service.
	ErrNilService = errors.New("feed service must not be nil")

	// ErrEmptyBaseURL is returned by NewHTTPIngester without a server URL.
	ErrEmptyBaseURL = errors.New("base URL must not be empty")

	// ErrUnexpectedStatus is returned when the server rejects an ingest request.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ingester accepts one generated event.
type Ingester interface {
	Ingest(ctx context.Context, fields map[string]any) error
}

// ServiceIngester feeds events straight into a feed.Service.
type ServiceIngester struct {
	service *feed.Service
}

// NewServiceIngester wraps service.
func NewServiceIngester(service *feed.Service) (*ServiceIngester, error) {
	if service == nil {
		return nil, ErrNilService
	}

	return &ServiceIngester{service: service}, nil
}

// Ingest stores and broadcasts fields.
func (i *ServiceIngester) Ingest(ctx context.Context, fields map[string]any) error {
	_, err := i.service.Ingest(ctx, fields)
	return err
}

// HTTPIngester posts events to a running server.
type HTTPIngester struct {
	endpoint  string
	agentAuth string
	client    *http.Client
}

// HTTPIngesterOption configures an HTTPIngester.
type HTTPIngesterOption func(*HTTPIngester)

// WithHTTPClient replaces the default client, which times out after ten seconds.
func WithHTTPClient(client *http.Client) HTTPIngesterOption {
	return func(i *HTTPIngester) {
		if client != nil {
			i.client = client
		}
	}
}

// WithAgentAuth sets the X-Agent-Auth value sent with every request.
func WithAgentAuth(secret string) HTTPIngesterOption {
	return func(i *HTTPIngester) {
		i.agentAuth = secret
	}
}

// NewHTTPIngester posts to baseURL + "/events".
func NewHTTPIngester(baseURL string, options ...HTTPIngesterOption) (*HTTPIngester, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	i := &HTTPIngester{
		endpoint:  baseURL + "/events",
		agentAuth: "agent",
		client:    &http.Client{Timeout: defaultClientTimeout},
	}

	for _, option := range options {
		option(i)
	}

	return i, nil
}

// Ingest posts fields as JSON and expects 200 OK.
func (i *HTTPIngester) Ingest(ctx context.Context, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(AgentAuthHeader, i.agentAuth)

	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return errors.Join(ErrUnexpectedStatus, fmt.Errorf("status %d", resp.StatusCode))
	}

	return nil
}
