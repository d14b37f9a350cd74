package portalapi

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

	"hrportal/portal-client/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// WithToken returns a copy that authenticates every call with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) GetStatus(ctx context.Context, employeeID string) (models.ClockStatus, error) {
	var status models.ClockStatus
	err := c.do(ctx, http.MethodGet, "/attendance/status/"+url.PathEscape(employeeID), nil, &status)
	return status, err
}

func (c *Client) Clock(ctx context.Context, req models.ClockRequest) error {
	return c.do(ctx, http.MethodPost, "/attendance/clock", req, nil)
}

func (c *Client) GetPersonalStats(ctx context.Context, employeeID string) (models.PersonalStats, error) {
	var stats models.PersonalStats
	err := c.do(ctx, http.MethodGet, "/attendance/stats/"+url.PathEscape(employeeID), nil, &stats)
	return stats, err
}

func (c *Client) GetHistory(ctx context.Context, employeeID string) ([]models.AttendanceDayLog, error) {
	var logs []models.AttendanceDayLog
	err := c.do(ctx, http.MethodGet, "/attendance/history/"+url.PathEscape(employeeID), nil, &logs)
	return logs, err
}

func (c *Client) GetHolidays(ctx context.Context) ([]models.Holiday, error) {
	var holidays []models.Holiday
	err := c.do(ctx, http.MethodGet, "/holidays", nil, &holidays)
	return holidays, err
}

func (c *Client) ListFeed(ctx context.Context) ([]models.FeedPost, error) {
	var posts []models.FeedPost
	err := c.do(ctx, http.MethodGet, "/feed", nil, &posts)
	return posts, err
}

func (c *Client) SetLike(ctx context.Context, postID string, liked bool) (models.LikeResult, error) {
	var result models.LikeResult
	body := map[string]bool{"liked": liked}
	err := c.do(ctx, http.MethodPost, "/feed/"+url.PathEscape(postID)+"/like", body, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, candidate := range []string{payload.Message, payload.Error, payload.Detail} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
