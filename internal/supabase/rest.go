package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/idilsaglam/livetodo/internal/model"
	"github.com/idilsaglam/livetodo/internal/remote"
)

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, msg)
}

func (c *Client) tableURL(q url.Values) string {
	u := c.base.JoinPath("rest", "v1", c.cfg.Table)
	u.RawQuery = q.Encode()
	return u.String()
}

func idFilter(id int64) url.Values {
	return url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
}

// do sends one PostgREST request and decodes a JSON body into out, if non-nil.
func (c *Client) do(ctx context.Context, method string, q url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.tableURL(q), rd)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Accept", "application/json")
	if method == http.MethodGet {
		req.Header.Set("Accept-Profile", c.cfg.Schema)
	} else {
		req.Header.Set("Content-Profile", c.cfg.Schema)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			if json.Unmarshal(raw, apiErr) != nil {
				apiErr.Message = string(raw)
			}
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Fetch(ctx context.Context) ([]model.Todo, error) {
	var rows []model.Todo
	q := url.Values{"select": {"*"}, "order": {"id.asc"}}
	if err := c.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, remote.Wrap("fetch", err)
	}
	if rows == nil {
		rows = []model.Todo{}
	}
	return rows, nil
}

type newRow struct {
	Task string `json:"task"`
	Done bool   `json:"done"`
}

func (c *Client) Insert(ctx context.Context, task string) (model.Todo, error) {
	var rows []model.Todo
	q := url.Values{"select": {"*"}}
	if err := c.do(ctx, http.MethodPost, q, []newRow{{Task: task}}, &rows); err != nil {
		return model.Todo{}, remote.Wrap("insert", err)
	}
	if len(rows) != 1 {
		return model.Todo{}, remote.Errorf("insert", "expected 1 row, got %d", len(rows))
	}
	return rows[0], nil
}

func (c *Client) Update(ctx context.Context, id int64, p model.Patch) (model.Todo, error) {
	var rows []model.Todo
	q := idFilter(id)
	q.Set("select", "*")
	if err := c.do(ctx, http.MethodPatch, q, p, &rows); err != nil {
		return model.Todo{}, remote.Wrap("update", err)
	}
	if len(rows) == 0 {
		return model.Todo{}, remote.Wrap("update", remote.ErrNotFound)
	}
	return rows[0], nil
}

// Delete succeeds even when the row is already gone.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, idFilter(id), nil, nil); err != nil {
		return remote.Wrap("delete", err)
	}
	return nil
}
