package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/config"
)

// Envelope is the response wrapper every upstream endpoint uses. code == 0
// is success; any other value is an application error carrying msg.
type Envelope struct {
	Code      int             `json:"code"`
	Msg       string          `json:"msg"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

const (
	CodeOK               = 0
	CodeUnauthorized     = 401
	CodePermissionDenied = 403
)

type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.Code, e.Msg)
}

// IsPermissionDenied reports whether err is an upstream auth/permission
// rejection, as opposed to any other application error.
func IsPermissionDenied(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeUnauthorized || apiErr.Code == CodePermissionDenied
}

// Client issues signed requests to the payroll backend. Every request
// carries APPID, VER, TS and SIG = SHA256(appid + ts + ver + api_key)
// headers; authenticated requests additionally carry the XAUTH session
// token. Clients are cheap value copies; WithToken returns an authenticated
// view without mutating the receiver.
type Client struct {
	baseURL    string
	appID      string
	ver        string
	apiKey     string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.Config, logger *logrus.Logger) *Client {
	timeout := time.Duration(cfg.Upstream.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.Upstream.URL,
		appID:      cfg.Upstream.AppID,
		ver:        cfg.Upstream.Ver,
		apiKey:     cfg.Upstream.ApiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithToken returns a copy of the client that sends the given XAUTH session
// token on every request.
func (c *Client) WithToken(token string) *Client {
	cc := *c
	cc.token = token
	return &cc
}

// Sign computes the request signature: hex(SHA256(appid + ts + ver + key)).
func Sign(appID string, ts int64, ver string, apiKey string) string {
	sum := sha256.Sum256([]byte(appID + strconv.FormatInt(ts, 10) + ver + apiKey))
	return hex.EncodeToString(sum[:])
}

// HashPassword hashes a plaintext password the way the upstream login
// endpoint expects it: hex-encoded SHA-256, computed client side.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fail to marshal request body, err: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("fail to create request, err: %w", err)
	}

	ts := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("APPID", c.appID)
	req.Header.Set("VER", c.ver)
	req.Header.Set("TS", strconv.FormatInt(ts, 10))
	req.Header.Set("SIG", Sign(c.appID, ts, c.ver, c.apiKey))
	if c.token != "" {
		req.Header.Set("XAUTH", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fail to call upstream %s, err: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Errorf("fail to close response body, err: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fail to read upstream response, err: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream %s returned status %d", path, resp.StatusCode)
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("fail to decode upstream envelope, err: %w", err)
	}
	if env.Code != CodeOK {
		return &APIError{Code: env.Code, Msg: env.Msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("fail to decode upstream data, err: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}
