// Package portal implements the authenticated session wrapper over the
// external developer-portal API.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"aspen/config"
	"aspen/internal/domain/entity"
	"aspen/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"
)

const (
	accountBase   = "/services-account/QH65B2/account"
	bundleIDsPath = "/services-account/v1/bundleIds"

	headerCSRF   = "csrf"
	headerCSRFTs = "csrf_ts"
)

// RemoteError is a typed portal failure carrying the call description and
// account context. The allocator treats it as a per-account failure; direct
// user-facing actions treat it as fatal.
type RemoteError struct {
	Description string
	Account     string
	Err         error
}

func (e *RemoteError) Error() string {
	return "portal call [" + e.Description + "] for [" + e.Account + "] failed: " + e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// csrfToken is the per-account anti-forgery token captured from portal
// response headers.
type csrfToken struct {
	token string
	ts    string
}

// Client implements service.PortalGateway over HTTP.
type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
	logger   *slog.Logger

	mu    sync.Mutex
	csrf  map[string]csrfToken
	group singleflight.Group
}

// Params holds dependencies for the portal client, injected by Fx.
type Params struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// New creates the portal client.
func New(params Params) service.PortalGateway {
	return NewClient(params.Config.Portal, params.Logger)
}

// NewClient creates a portal client against an explicit configuration;
// tests point BaseURL at a stub server.
func NewClient(cfg config.PortalConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: cfg.DevicePageSize,
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
		csrf:   make(map[string]csrfToken),
	}
}

// call describes one portal request.
type call struct {
	description  string
	method       string
	path         string
	form         url.Values        // Form-encoded body, nil for jsonBody calls.
	jsonBody     []byte            // Raw JSON body (bundle id registration).
	headers      map[string]string // Extra request headers.
	csrf         bool              // Attach the cached per-account CSRF token.
	binary       bool              // Return the raw body instead of decoding JSON.
	expectStatus int               // Defaults to 200.
	checkResult  bool              // Require resultCode == 0 in the response.
	quiet        bool              // Suppress the per-call log line (high-volume syncs).
	dedupKey     string            // Non-empty collapses identical in-flight calls.
}

// do executes one authenticated call and decodes the response into out
// (ignored in binary mode, where the body is returned instead).
func (c *Client) do(ctx context.Context, account *entity.Account, req call, out any) ([]byte, error) {
	if req.dedupKey != "" {
		// Idempotent validation calls issued concurrently for the same key
		// collapse into a single portal request.
		raw, err, _ := c.group.Do(req.dedupKey, func() (any, error) {
			inner := req
			inner.dedupKey = ""

			return c.do(ctx, account, inner, nil)
		})
		if err != nil {
			return nil, err
		}
		body, _ := raw.([]byte)
		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return nil, c.remoteErr(req, account, errors.Wrap(err, "malformed response"))
			}
		}

		return body, nil
	}

	if !req.quiet {
		c.logger.Info("Portal call",
			slog.String("description", req.description),
			slog.String("account", account.Account),
		)
	}

	body, err := c.doOnce(ctx, account, req, out)
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (c *Client) doOnce(ctx context.Context, account *entity.Account, req call, out any) ([]byte, error) {
	var payload io.Reader
	contentType := ""
	switch {
	case req.jsonBody != nil:
		payload = bytes.NewReader(req.jsonBody)
		contentType = "application/vnd.api+json"
	case req.form != nil:
		payload = strings.NewReader(req.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, payload)
	if err != nil {
		return nil, c.remoteErr(req, account, err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("Cookie", cookieHeader(account.CookieMap()))
	for key, value := range account.HeaderMap() {
		// Pseudo-headers from captured HTTP/2 transcripts are not resendable.
		if strings.HasPrefix(key, ":") || strings.EqualFold(key, "cookie") || strings.EqualFold(key, "content-length") {
			continue
		}
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	if req.csrf {
		token, err := c.ensureCSRF(ctx, account)
		if err != nil {
			return nil, c.remoteErr(req, account, err)
		}
		httpReq.Header.Set(headerCSRF, token.token)
		httpReq.Header.Set(headerCSRFTs, token.ts)
	}

	rsp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.remoteErr(req, account, err)
	}
	defer rsp.Body.Close()

	c.captureCSRF(account.Account, rsp.Header)

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, c.remoteErr(req, account, err)
	}

	expect := req.expectStatus
	if expect == 0 {
		expect = http.StatusOK
	}
	if rsp.StatusCode != expect {
		return nil, c.remoteErr(req, account,
			errors.Errorf("unexpected status %d (want %d)", rsp.StatusCode, expect))
	}

	if req.binary {
		return body, nil
	}

	if req.checkResult {
		var envelope struct {
			ResultCode json.Number `json:"resultCode"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, c.remoteErr(req, account, errors.Wrap(err, "malformed response"))
		}
		if envelope.ResultCode.String() != "0" {
			return nil, c.remoteErr(req, account,
				errors.Errorf("resultCode %s", envelope.ResultCode.String()))
		}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, c.remoteErr(req, account, errors.Wrap(err, "malformed response"))
		}
	}

	return body, nil
}

// ensureCSRF returns the cached token for the account, priming it with a
// cheap list call when absent; the portal hands the token back in response
// headers of any account-scoped call.
func (c *Client) ensureCSRF(ctx context.Context, account *entity.Account) (csrfToken, error) {
	c.mu.Lock()
	token, ok := c.csrf[account.Account]
	c.mu.Unlock()
	if ok {
		return token, nil
	}

	form := c.listForm(account)
	form.Set("pageSize", "1")
	if _, err := c.doOnce(ctx, account, call{
		description: "prime csrf token",
		method:      http.MethodPost,
		path:        accountBase + "/ios/device/listDevices.action?teamId=",
		form:        form,
		quiet:       true,
	}, nil); err != nil {
		return csrfToken{}, err
	}

	c.mu.Lock()
	token, ok = c.csrf[account.Account]
	c.mu.Unlock()
	if !ok {
		return csrfToken{}, errors.New("portal response carried no csrf token")
	}

	return token, nil
}

func (c *Client) captureCSRF(account string, header http.Header) {
	token := header.Get(headerCSRF)
	if token == "" {
		return
	}

	c.mu.Lock()
	c.csrf[account] = csrfToken{token: token, ts: header.Get(headerCSRFTs)}
	c.mu.Unlock()
}

func (c *Client) remoteErr(req call, account *entity.Account, err error) error {
	return &RemoteError{
		Description: req.description,
		Account:     account.Account,
		Err:         err,
	}
}

func (c *Client) listForm(account *entity.Account) url.Values {
	form := url.Values{}
	form.Set("teamId", account.TeamID)
	form.Set("pageNumber", "1")
	form.Set("pageSize", strconv.Itoa(c.pageSize))

	return form
}

func cookieHeader(cookies map[string]string) string {
	keys := make([]string, 0, len(cookies))
	for key := range cookies {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+cookies[key])
	}

	return strings.Join(pairs, "; ")
}
