package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls procedures on a remote gateway over HTTP
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a gateway client. token is sent as a bearer credential.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Call implements Caller
func (c *Client) Call(ctx context.Context, name string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return Errorf(CodeInvalidArgument, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rpc/"+name, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Errorf(CodeUnavailable, "%s: %v", name, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return Errorf(CodeUnavailable, "%s: %v", name, err)
	}

	if httpResp.StatusCode >= 300 {
		var e Error
		if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
			return Errorf(CodeInternal, "%s: unexpected status %d", name, httpResp.StatusCode)
		}
		return &e
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%s: malformed response: %w", name, err)
	}
	return decodeInto(envelope.Result, resp)
}

var _ Caller = (*Client)(nil)
