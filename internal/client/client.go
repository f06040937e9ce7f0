// Package client provides an HTTP client for the churchdesk /api routes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/churchdesk/internal/apperr"
	"github.com/evcraddock/churchdesk/internal/db"
	"github.com/evcraddock/churchdesk/internal/duedate"
	"github.com/evcraddock/churchdesk/internal/equipment"
	"github.com/evcraddock/churchdesk/internal/report"
	"github.com/evcraddock/churchdesk/internal/visitor"
)

// Client talks to a running churchdesk server with an API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EquipmentDetail is the response from GET /api/equipment/{id}.
type EquipmentDetail struct {
	*equipment.Asset
	Maintenance []*equipment.Maintenance `json:"maintenance"`
}

// ListOptions narrows the list calls. Zero values mean no filter.
type ListOptions struct {
	Search  string
	Due     duedate.Status
	Page    int
	PerPage int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Search != "" {
		q.Set("q", o.Search)
	}
	if o.Due != "" {
		q.Set("due", string(o.Due))
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(o.PerPage))
	}
	return q
}

// Due returns everything overdue or due within days. A negative days uses
// the server's default window.
func (c *Client) Due(ctx context.Context, days int) (*report.Due, error) {
	path := "/api/reports/due"
	if days >= 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var due report.Due
	if err := c.get(ctx, path, &due); err != nil {
		return nil, err
	}
	return &due, nil
}

// Dashboard returns the summary counts.
func (c *Client) Dashboard(ctx context.Context) (*report.Dashboard, error) {
	var d report.Dashboard
	if err := c.get(ctx, "/api/reports/dashboard", &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListEquipment returns one page of equipment.
func (c *Client) ListEquipment(ctx context.Context, opts ListOptions) (db.List[*equipment.Asset], error) {
	var list db.List[*equipment.Asset]
	err := c.get(ctx, withQuery("/api/equipment", opts.query()), &list)
	return list, err
}

// GetEquipment returns an asset with its maintenance history.
func (c *Client) GetEquipment(ctx context.Context, id int64) (*EquipmentDetail, error) {
	var resp EquipmentDetail
	if err := c.get(ctx, fmt.Sprintf("/api/equipment/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListVisitors returns one page of visitors.
func (c *Client) ListVisitors(ctx context.Context, opts ListOptions) (db.List[*visitor.Visitor], error) {
	var list db.List[*visitor.Visitor]
	err := c.get(ctx, withQuery("/api/visitors", opts.query()), &list)
	return list, err
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, result)
}

// do executes an HTTP request with the auth header and maps error bodies
// back to apperr kinds.
func (c *Client) do(req *http.Request, result any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "err", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return responseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func responseError(status int, body []byte) error {
	var errResp struct {
		Error struct {
			Code       string              `json:"code"`
			Message    string              `json:"message"`
			Fields     []apperr.FieldError `json:"fields"`
			Dependents int                 `json:"dependents"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Code != "" {
		return &apperr.Error{
			Kind:       apperr.Kind(errResp.Error.Code),
			Message:    errResp.Error.Message,
			Fields:     errResp.Error.Fields,
			Dependents: errResp.Error.Dependents,
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" && len(msg) < 200 {
		return fmt.Errorf("server error: %s (%d)", msg, status)
	}
	return fmt.Errorf("server error: %s", http.StatusText(status))
}
