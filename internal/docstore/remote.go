package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types carried on the watch socket
const (
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// Event is one message on the watch socket
type Event struct {
	Type      string     `json:"type"`
	Documents []Document `json:"documents,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// ListResponse is the body of a collection read
type ListResponse struct {
	Documents []Document `json:"documents"`
}

// APIError is the error body returned by the document server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docstore: %s (%d): %s", e.Code, e.Status, e.Message)
}

const (
	minRetryDelay = 500 * time.Millisecond
	maxRetryDelay = 30 * time.Second
)

// Remote talks to a document server over HTTP and keeps subscriptions
// open on websockets, reconnecting with backoff.
type Remote struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	logger  *log.Logger
}

// NewRemote creates a client for the server at baseURL. token is sent as
// a bearer credential.
func NewRemote(baseURL, token string, logger *log.Logger) *Remote {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

// Subscribe implements Client. Snapshots and errors are delivered from
// one goroutine per subscription.
func (r *Remote) Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) func() {
	if onError == nil {
		onError = func(error) {}
	}
	if !ValidCollection(collection) {
		onError(ErrInvalidPath)
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var (
		mu   sync.Mutex
		conn *websocket.Conn
	)
	closeConn := func() {
		mu.Lock()
		if conn != nil {
			conn.Close()
		}
		mu.Unlock()
	}

	go func() {
		delay := minRetryDelay
		for {
			c, err := r.dial(ctx, collection)
			if err == nil {
				mu.Lock()
				conn = c
				mu.Unlock()
				if ctx.Err() != nil {
					c.Close()
					return
				}
				err = r.read(c, onSnapshot)
				delay = minRetryDelay
			}
			if ctx.Err() != nil {
				return
			}
			onError(err)
			r.logger.Printf("watch %s: %v (retrying in %s)", collection, err, delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			closeConn()
		})
	}
}

func (r *Remote) dial(ctx context.Context, collection string) (*websocket.Conn, error) {
	u, err := url.Parse(r.baseURL + "/v1/watch")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("collection", collection)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if r.token != "" {
		header.Set("Authorization", "Bearer "+r.token)
	}
	conn, resp, err := r.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("failed to open watch: %w", err)
	}
	return conn, nil
}

func (r *Remote) read(conn *websocket.Conn, onSnapshot SnapshotFunc) error {
	defer conn.Close()
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("watch closed: %w", err)
		}
		switch ev.Type {
		case EventSnapshot:
			if ev.Documents == nil {
				ev.Documents = []Document{}
			}
			onSnapshot(ev.Documents)
		case EventError:
			return fmt.Errorf("watch failed: %s", ev.Message)
		}
	}
}

// Write implements Client
func (r *Remote) Write(ctx context.Context, collection, id string, record map[string]any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return r.do(ctx, http.MethodPut, r.docURL(collection, id), body, nil)
}

// Delete implements Client
func (r *Remote) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	return r.do(ctx, http.MethodDelete, r.docURL(collection, id), nil, nil)
}

// List implements Client
func (r *Remote) List(ctx context.Context, collection string) ([]Document, error) {
	if !ValidCollection(collection) {
		return nil, ErrInvalidPath
	}
	var out ListResponse
	if err := r.do(ctx, http.MethodGet, r.baseURL+"/v1/docs/"+collection, nil, &out); err != nil {
		return nil, err
	}
	if out.Documents == nil {
		out.Documents = []Document{}
	}
	return out.Documents, nil
}

func (r *Remote) docURL(collection, id string) string {
	return r.baseURL + "/v1/docs/" + collection + "/" + url.PathEscape(id)
}

func (r *Remote) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

var _ Client = (*Remote)(nil)
