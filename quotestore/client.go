package quotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/quotes_backend/models"
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
)

// Client talks to the quote store service. Every transport or server
// failure surfaces as a PersistenceError so callers keep the draft and
// retry; a 404 maps to the shared ErrorRecordNotFound sentinel.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient falls back to QUOTE_STORE_URL / QUOTE_STORE_API_KEY when
// baseURL is empty.
func NewClient(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = strings.TrimSpace(os.Getenv("QUOTE_STORE_URL"))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(os.Getenv("QUOTE_STORE_API_KEY")),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) do(ctx context.Context, op string, method string, path string, payload interface{}, dest interface{}) error {
	if c.baseURL == "" {
		return &utils.PersistenceError{Op: op, Message: "quote store url is not configured"}
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return &utils.PersistenceError{Op: op, Message: "encode request", Err: err}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &utils.PersistenceError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if companyId, ok := utils.GetCompanyIdFromContext(ctx); ok && companyId != "" {
		req.Header.Set("X-Company-Id", companyId)
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId != "" {
		req.Header.Set("X-User-Id", userId)
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok && correlationId != "" {
		req.Header.Set("x-correlation-id", correlationId)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &utils.PersistenceError{Op: op, Message: "quote store unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return utils.ErrorRecordNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &utils.PersistenceError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return &utils.PersistenceError{Op: op, Message: "decode response", Err: err}
	}
	return nil
}

func (c *Client) CreateQuote(ctx context.Context, payload *QuotePayload) (*QuoteResponse, error) {
	var result QuoteResponse
	if err := c.do(ctx, "create", http.MethodPost, "/api/quotes", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateQuote(ctx context.Context, quoteId int, payload *QuotePayload) (*QuoteResponse, error) {
	var result QuoteResponse
	if err := c.do(ctx, "update", http.MethodPut, fmt.Sprintf("/api/quotes/%d", quoteId), payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetQuote(ctx context.Context, quoteId int) (*QuoteResponse, error) {
	var result QuoteResponse
	if err := c.do(ctx, "get", http.MethodGet, fmt.Sprintf("/api/quotes/%d", quoteId), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransitionQuote sends a status-only payload; the store applies the
// lifecycle guard again before persisting.
func (c *Client) TransitionQuote(ctx context.Context, quoteId int, status models.QuoteStatus, signature *models.SignaturePayload) (*QuoteResponse, error) {
	payload := &QuotePayload{Status: status, Signature: signature}
	var result QuoteResponse
	if err := c.do(ctx, "transition", http.MethodPut, fmt.Sprintf("/api/quotes/%d", quoteId), payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
