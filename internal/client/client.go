package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/foxzi/reachgate/internal/money"
	"github.com/foxzi/reachgate/internal/segment"
)

// APIError is returned for responses with status >= 400
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the dashboard backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// request performs an HTTP request to the API
func (c *Client) request(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Health checks server health
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.request(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CountSegment returns how many contacts match rules
func (c *Client) CountSegment(ctx context.Context, rules []segment.Rule) (int, error) {
	if rules == nil {
		rules = []segment.Rule{}
	}
	var resp CountResponse
	if err := c.request(ctx, http.MethodPost, "/segments/count", rules, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// CreateSegment creates a segment
func (c *Client) CreateSegment(ctx context.Context, p *segment.Payload) (*segment.Segment, error) {
	var seg segment.Segment
	if err := c.request(ctx, http.MethodPost, "/segments/", p, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// UpdateSegment replaces a segment definition
func (c *Client) UpdateSegment(ctx context.Context, id string, p *segment.Payload) (*segment.Segment, error) {
	var seg segment.Segment
	if err := c.request(ctx, http.MethodPut, "/segments/"+url.PathEscape(id), p, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// GetSegment gets a segment by id
func (c *Client) GetSegment(ctx context.Context, id string) (*segment.Segment, error) {
	var seg segment.Segment
	if err := c.request(ctx, http.MethodGet, "/segments/"+url.PathEscape(id), nil, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// ListSegments lists all segments
func (c *Client) ListSegments(ctx context.Context) ([]*segment.Segment, error) {
	var resp SegmentsResponse
	if err := c.request(ctx, http.MethodGet, "/segments/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Segments, nil
}

// DeleteSegment deletes a segment
func (c *Client) DeleteSegment(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/segments/"+url.PathEscape(id), nil, nil)
}

// GetBalance returns the wallet balance
func (c *Client) GetBalance(ctx context.Context) (money.Amount, error) {
	var resp BalanceResponse
	if err := c.request(ctx, http.MethodGet, "/wallet/balance", nil, &resp); err != nil {
		return money.Zero, err
	}
	return resp.Balance, nil
}

// TopUp adds funds and returns the new balance
func (c *Client) TopUp(ctx context.Context, amount money.Amount) (money.Amount, error) {
	var resp BalanceResponse
	if err := c.request(ctx, http.MethodPost, "/wallet/topup", &TopUpRequest{Amount: amount}, &resp); err != nil {
		return money.Zero, err
	}
	return resp.Balance, nil
}

// GetCredits returns the remaining reboost credits
func (c *Client) GetCredits(ctx context.Context) (int, error) {
	var resp CreditsResponse
	if err := c.request(ctx, http.MethodGet, "/reboost/credits", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Credits, nil
}

// CheckReboost asks the server whether a reboost is covered by credits
func (c *Client) CheckReboost(ctx context.Context, recipients int) (*ReboostResponse, error) {
	var resp ReboostResponse
	if err := c.request(ctx, http.MethodPost, "/reboost/check", &ReboostRequest{RecipientCount: recipients}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Estimate requests a campaign quote against the server's wallet
func (c *Client) Estimate(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	var resp EstimateResponse
	if err := c.request(ctx, http.MethodPost, "/campaigns/estimate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ImportContacts uploads contacts
func (c *Client) ImportContacts(ctx context.Context, contacts []*segment.Contact) (*ImportContactsResponse, error) {
	var resp ImportContactsResponse
	if err := c.request(ctx, http.MethodPost, "/contacts", &ImportContactsRequest{Contacts: contacts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListContacts pages through contacts
func (c *Client) ListContacts(ctx context.Context, limit, offset int) ([]*segment.Contact, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	path := "/contacts"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp ContactsResponse
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}
