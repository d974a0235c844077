// Package api is a store client speaking to the JSON bill store over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billed/internal/auth"
	"billed/internal/core"
	"billed/internal/store"
)

// Client implements store.Store against a remote store API. The bearer token
// is taken from the request context, see auth.WithToken.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ store.Store         = (*Client)(nil)
	_ store.BillsResource = (*Client)(nil)
)

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Bills() store.BillsResource { return c }

func (c *Client) List(ctx context.Context) ([]core.Bill, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/bills", nil, "")
	if err != nil {
		return nil, err
	}
	var bills []core.Bill
	if err := c.do(req, &bills); err != nil {
		return nil, err
	}
	return bills, nil
}

func (c *Client) Create(ctx context.Context, p store.CreatePayload) (store.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("email", p.Email); err != nil {
		return store.UploadResult{}, fmt.Errorf("encode upload: %w", err)
	}
	part, err := mw.CreateFormFile("file", p.File.Name)
	if err != nil {
		return store.UploadResult{}, fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(p.File.Content); err != nil {
		return store.UploadResult{}, fmt.Errorf("encode upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return store.UploadResult{}, fmt.Errorf("encode upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/bills", &body, mw.FormDataContentType())
	if err != nil {
		return store.UploadResult{}, err
	}
	var res store.UploadResult
	if err := c.do(req, &res); err != nil {
		return store.UploadResult{}, err
	}
	return res, nil
}

func (c *Client) Update(ctx context.Context, p store.UpdatePayload) (core.Bill, error) {
	raw, err := json.Marshal(p.Bill)
	if err != nil {
		return core.Bill{}, fmt.Errorf("encode bill: %w", err)
	}
	path := "/api/bills/" + url.PathEscape(p.Selector)
	req, err := c.newRequest(ctx, http.MethodPatch, path, bytes.NewReader(raw), "application/json")
	if err != nil {
		return core.Bill{}, err
	}
	var b core.Bill
	if err := c.do(req, &b); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := auth.TokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// do sends req and decodes a JSON body into out. Non-2xx answers become a
// *store.Error named after the status code.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return store.NewError(resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
