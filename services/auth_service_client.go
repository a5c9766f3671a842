package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"watch-rewards-system/models"
)

// AuthServiceClient talks to the hosted auth service's REST API (GoTrue
// compatible). Admin calls authenticate with the service key.
type AuthServiceClient struct {
	BaseURL    string
	ServiceKey string

	// retrying is used for idempotent calls, once for calls that must not
	// be repeated (creating an account, exchanging credentials).
	retrying heimdall.Doer
	once     heimdall.Doer
}

type AuthClientOptions struct {
	Timeout    time.Duration
	RetryCount int
	Backoff    time.Duration
}

func NewAuthServiceClient(baseURL, serviceKey string, opts AuthClientOptions) *AuthServiceClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	retrier := heimdall.NewRetrier(heimdall.NewConstantBackoff(opts.Backoff, opts.Backoff/4))
	return &AuthServiceClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		retrying: httpclient.NewClient(
			httpclient.WithHTTPTimeout(opts.Timeout),
			httpclient.WithRetrier(retrier),
			httpclient.WithRetryCount(opts.RetryCount),
		),
		once: httpclient.NewClient(
			httpclient.WithHTTPTimeout(opts.Timeout),
		),
	}
}

// AuthAPIError is a non-2xx answer from the auth service. It unwraps to the
// matching models error kind.
type AuthAPIError struct {
	Status  int
	Code    string
	Message string
	kind    error
}

func (e *AuthAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth service %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("auth service %d: %s", e.Status, e.Message)
}

func (e *AuthAPIError) Unwrap() error { return e.kind }

type authErrorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// errorKinds maps the service's machine-readable error codes.
var errorKinds = map[string]error{
	"email_exists":            models.ErrDuplicateKey,
	"user_already_exists":     models.ErrDuplicateKey,
	"phone_exists":            models.ErrDuplicateKey,
	"invalid_credentials":     models.ErrInvalidCredentials,
	"invalid_grant":           models.ErrInvalidCredentials,
	"user_not_found":          models.ErrRecordNotFound,
	"weak_password":           models.ErrInvalidInput,
	"validation_failed":       models.ErrInvalidInput,
	"email_address_invalid":   models.ErrInvalidInput,
	"bad_jwt":                 models.ErrUnauthorized,
	"session_not_found":       models.ErrUnauthorized,
	"over_request_rate_limit": models.ErrStoreUnavailable,
}

func decodeAuthError(resp *http.Response) *AuthAPIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body authErrorBody
	_ = json.Unmarshal(raw, &body)

	apiErr := &AuthAPIError{Status: resp.StatusCode, Code: body.ErrorCode}
	if apiErr.Code == "" {
		apiErr.Code = body.Error
	}
	for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error, string(raw)} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}

	if kind, ok := errorKinds[apiErr.Code]; ok {
		apiErr.kind = kind
		return apiErr
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		apiErr.kind = models.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		apiErr.kind = models.ErrRecordNotFound
	case resp.StatusCode == http.StatusConflict:
		apiErr.kind = models.ErrDuplicateKey
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		apiErr.kind = models.ErrInvalidInput
	default:
		apiErr.kind = models.ErrStoreUnavailable
	}
	return apiErr
}

func (c *AuthServiceClient) do(ctx context.Context, client heimdall.Doer, method, path string, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", models.ErrStoreUnavailable, method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAuthError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *AuthServiceClient) CreateIdentity(ctx context.Context, email, password string, attrs map[string]any) (*Identity, error) {
	req := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": attrs,
	}
	var out Identity
	if err := c.do(ctx, c.once, http.MethodPost, "/admin/users", c.ServiceKey, req, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIdentityCreationFailed, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: auth service returned no user id", models.ErrIdentityCreationFailed)
	}
	return &out, nil
}

func (c *AuthServiceClient) DeleteIdentity(ctx context.Context, id string) error {
	return c.do(ctx, c.retrying, http.MethodDelete, "/admin/users/"+url.PathEscape(id), c.ServiceKey, nil, nil)
}

func (c *AuthServiceClient) ListIdentities(ctx context.Context, page, perPage int) ([]Identity, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out struct {
		Users []Identity `json:"users"`
	}
	if err := c.do(ctx, c.retrying, http.MethodGet, "/admin/users?"+q.Encode(), c.ServiceKey, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *AuthServiceClient) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	req := map[string]string{"email": email, "password": password}
	var out Tokens
	if err := c.do(ctx, c.once, http.MethodPost, "/token?grant_type=password", c.ServiceKey, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *AuthServiceClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, c.once, http.MethodPost, "/logout", accessToken, nil, nil)
}
