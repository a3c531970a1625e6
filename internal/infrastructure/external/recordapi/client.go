package recordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// Default endpoint paths. {site} is replaced by the path-escaped site.
const (
	DefaultLoginPath        = "/api/login"
	DefaultListPath         = "/api/dashboard/{site}/"
	DefaultUpdatePathPrefix = "/dashboard/update"
	LegacyUpdatePathPrefix  = "/api/dashboard/update"
	DefaultCreatePath       = "/api/form/{site}/records"
	LegacyCreatePath        = "/api/form/records"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded
var ErrMalformedResponse = errors.New("malformed response from record api")

const maxBodyBytes = 8 << 20

// Config holds Record API client configuration
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	LoginPath        string
	ListPath         string
	UpdatePathPrefix string
	CreatePath       string
	AttachToken      bool
	UserAgent        string
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.ListPath == "" {
		c.ListPath = DefaultListPath
	}
	if c.UpdatePathPrefix == "" {
		c.UpdatePathPrefix = DefaultUpdatePathPrefix
	}
	if c.CreatePath == "" {
		c.CreatePath = DefaultCreatePath
	}
	if c.UserAgent == "" {
		c.UserAgent = "grant-portal/1.0"
	}
}

// Client implements port.RecordAPI over HTTP/JSON
type Client struct {
	config Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a new Record API client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	config.applyDefaults()

	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid record api base url %q", config.BaseURL)
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

type commentsUpdate struct {
	Comments        string `json:"comments"`
	CommentsGivenBy string `json:"commentsGivenBy"`
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, c.config.LoginPath, "", loginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("%w: login response has no token", ErrMalformedResponse)
	}
	return resp.Token, nil
}

// ListRecords fetches the site's records
func (c *Client) ListRecords(ctx context.Context, token, site string) ([]entity.Record, error) {
	var records []entity.Record
	if err := c.do(ctx, http.MethodGet, sitePath(c.config.ListPath, site), token, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []entity.Record{}
	}
	return records, nil
}

// UpdateStatus sends {status} for letterNo
func (c *Client) UpdateStatus(ctx context.Context, token, letterNo, status string) error {
	return c.do(ctx, http.MethodPut, c.updatePath(letterNo), token, statusUpdate{Status: status}, nil)
}

// UpdateComments sends {comments, commentsGivenBy} for letterNo
func (c *Client) UpdateComments(ctx context.Context, token, letterNo, comments, commentsGivenBy string) error {
	return c.do(ctx, http.MethodPut, c.updatePath(letterNo), token, commentsUpdate{
		Comments:        comments,
		CommentsGivenBy: commentsGivenBy,
	}, nil)
}

// CreateRecord posts the draft for site
func (c *Client) CreateRecord(ctx context.Context, token, site string, draft entity.RecordDraft) error {
	return c.do(ctx, http.MethodPost, sitePath(c.config.CreatePath, site), token, draft, nil)
}

func (c *Client) updatePath(letterNo string) string {
	return strings.TrimRight(c.config.UpdatePathPrefix, "/") + "/" + url.PathEscape(letterNo)
}

func sitePath(tmpl, site string) string {
	return strings.ReplaceAll(tmpl, "{site}", url.PathEscape(site))
}

// do sends one JSON request. Non-2xx responses become *port.APIError;
// everything else that goes wrong is a transport error.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.AttachToken && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Record API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("Record API response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func apiError(status int, body []byte) *port.APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	apiErr := &port.APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

var _ port.RecordAPI = (*Client)(nil)
