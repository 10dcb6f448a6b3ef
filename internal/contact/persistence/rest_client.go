package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/logging"
)

const (
	// DefaultTable is the table the landing page writes to
	DefaultTable = "contact_submissions"

	DefaultTimeout = 10 * time.Second

	restPrefix = "rest/v1"
)

// Settings are the process-wide connection settings of the hosted database
type Settings struct {
	URL     string
	APIKey  string
	Table   string
	Timeout time.Duration
}

// Configured reports whether both the endpoint and the access key are present
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.APIKey) != ""
}

// RESTClient inserts rows through the hosted database's REST interface
type RESTClient struct {
	settings   Settings
	httpClient *http.Client
}

// RESTOption configures a RESTClient
type RESTOption func(*RESTClient)

// WithHTTPClient replaces the default client, mostly for tests
func WithHTTPClient(c *http.Client) RESTOption {
	return func(rc *RESTClient) {
		if c != nil {
			rc.httpClient = c
		}
	}
}

// NewRESTClient never fails: missing settings surface as NotConfigured on Insert
func NewRESTClient(settings Settings, opts ...RESTOption) *RESTClient {
	if settings.Table == "" {
		settings.Table = DefaultTable
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	settings.URL = strings.TrimRight(strings.TrimSpace(settings.URL), "/")
	settings.APIKey = strings.TrimSpace(settings.APIKey)

	c := &RESTClient{
		settings: settings,
		httpClient: &http.Client{
			Timeout: settings.Timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether Insert will attempt network I/O
func (c *RESTClient) Configured() bool {
	return c.settings.Configured()
}

// Table returns the target table name
func (c *RESTClient) Table() string {
	return c.settings.Table
}

// restError is the error body returned by the REST interface
type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Insert writes one row and asks for it back. There is no retry.
func (c *RESTClient) Insert(ctx context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error) {
	if !c.Configured() {
		return nil, domain.NewNotConfigured()
	}
	logger := logging.NewLogger(ctx)

	endpoint, err := url.JoinPath(c.settings.URL, restPrefix, c.settings.Table)
	if err != nil {
		return nil, domain.NewRemoteFailure("", fmt.Errorf("build url: %w", err))
	}

	body, err := json.Marshal([]domain.SubmissionRecord{rec})
	if err != nil {
		return nil, domain.NewRemoteFailure("", fmt.Errorf("marshal record: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewRemoteFailure("", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.settings.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	req.Header.Set("Prefer", "return=representation")
	if rid := logging.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.LogError("persistence_insert", err)
		return nil, domain.NewRemoteFailure("", fmt.Errorf("insert request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewRemoteFailure("", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.LogWarnf("persistence_insert", "backend returned status %d", resp.StatusCode)
		return nil, remoteError(resp.StatusCode, respBody)
	}

	var rows []domain.StoredSubmission
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &rows); err != nil {
			return nil, domain.NewRemoteFailure("", fmt.Errorf("unmarshal response: %w", err))
		}
	}
	if len(rows) == 0 {
		// Row written but not returned (e.g. read policy denies select).
		return &domain.StoredSubmission{SubmissionRecord: rec}, nil
	}
	return &rows[0], nil
}

func remoteError(status int, body []byte) *domain.PersistenceError {
	var re restError
	msg := ""
	if err := json.Unmarshal(body, &re); err == nil {
		msg = strings.TrimSpace(re.Message)
	}
	pe := domain.NewRemoteFailure(msg, fmt.Errorf("backend returned status %d: %s", status, strings.TrimSpace(string(body))))
	pe.Status = status
	pe.Code = re.Code
	return pe
}
