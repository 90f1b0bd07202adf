package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"taskpad/internal/provider"
)

// Insert implements provider.Client.
func (c *Client) Insert(ctx context.Context, table string, records any) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return c.restRequest(ctx, http.MethodPost, table, "", data, map[string]string{
		"Prefer": "return=representation",
	})
}

// Select implements provider.Client.
func (c *Client) Select(ctx context.Context, table string, filters []provider.Filter, order *provider.Order) ([]byte, error) {
	return c.restRequest(ctx, http.MethodGet, table, buildQuery(filters, order), nil, nil)
}

// Update implements provider.Client.
func (c *Client) Update(ctx context.Context, table string, filters []provider.Filter, patch any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = c.restRequest(ctx, http.MethodPatch, table, buildQuery(filters, nil), data, nil)
	return err
}

// Delete implements provider.Client.
func (c *Client) Delete(ctx context.Context, table string, filters []provider.Filter) error {
	_, err := c.restRequest(ctx, http.MethodDelete, table, buildQuery(filters, nil), nil, nil)
	return err
}

// restRequest performs one /rest/v1 table request. An expired access
// token is refreshed first so table calls never carry a stale bearer.
func (c *Client) restRequest(ctx context.Context, method, table, query string, body []byte, headers map[string]string) ([]byte, error) {
	c.refreshIfExpired(ctx)

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	u := c.baseURL + restPath + "/" + table
	if query != "" {
		u += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.DbError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.DbError{Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.DbError{
			Code:    dbErrorCode(respBody),
			Message: errorMessage(respBody),
		}
	}
	return respBody, nil
}

func (c *Client) refreshIfExpired(ctx context.Context) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || !sess.expired() || sess.RefreshToken == "" {
		return
	}
	// Best effort: a failed refresh surfaces as 401 on the table call.
	_, _ = c.refreshGrant(ctx, sess.RefreshToken)
}

func dbErrorCode(body []byte) string {
	var e struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		return e.Code
	}
	return ""
}
