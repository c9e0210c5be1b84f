package storedsafe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cast"
)

// OutcomeKind tags a FetchOutcome.
type OutcomeKind int

const (
	// OutcomeSuccess carries the extracted field value.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeTokenRejected marks an HTTP 403: the session token is no longer
	// valid and the caller must refresh before retrying.
	OutcomeTokenRejected

	// OutcomeTransientFailure marks any other >= 400 status. The vault
	// answered, the token was accepted, and the failure is not something a
	// token refresh can fix; callers treat it as fatal.
	OutcomeTransientFailure

	// OutcomeMalformed marks a well-formed response that holds no usable
	// value: no object entries, no such field, or an empty value. The vault
	// definitively has nothing to return; callers treat it as fatal.
	OutcomeMalformed
)

// FetchOutcome is the tagged result of one object fetch. Control-flow
// decisions (retry, refresh, fail) are made on Kind by the lookup
// orchestrator, not inside the client.
type FetchOutcome struct {
	Kind       OutcomeKind
	Value      string // set when Kind == OutcomeSuccess
	StatusCode int    // set when Kind == OutcomeTransientFailure
}

// Client issues the two StoredSafe wire operations: the auth check and the
// object fetch. It holds no session state; the token is passed per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	hook       ObservabilityHook
}

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithHTTPClient replaces the underlying HTTP client. The TLS verification
// mode passed to NewClient is not applied to a replacement client; tests use
// this to point the Client at an httptest server.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("%w: http client cannot be nil", ErrInvalidConfiguration)
		}
		c.httpClient = hc
		return nil
	}
}

// WithClientHook sets the observability hook receiving the client's trace
// points.
func WithClientHook(hook ObservabilityHook) ClientOption {
	return func(c *Client) error {
		if hook == nil {
			return fmt.Errorf("%w: observability hook cannot be nil", ErrInvalidConfiguration)
		}
		c.hook = hook
		return nil
	}
}

// WithBaseURL overrides the https://<server>/api/1.0 base URL derivation.
// Primarily for tests against plain-HTTP local servers.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		if baseURL == "" {
			return fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfiguration)
		}
		c.baseURL = baseURL
		return nil
	}
}

// NewClient builds a vault client for the given server address with the
// given TLS verification mode.
func NewClient(server string, verify VerifyMode, opts ...ClientOption) (*Client, error) {
	hc := cleanhttp.DefaultPooledClient()
	transport := hc.Transport.(*http.Transport)
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if err := verify.apply(transport.TLSClientConfig); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    NewSession(server, "").BaseURL(),
		httpClient: hc,
		hook:       &NoOpObservabilityHook{},
	}
	for i, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid client option %d: %w", i+1, err)
		}
	}
	return c, nil
}

// BaseURL returns the REST base URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type authCheckResponse struct {
	CallInfo struct {
		Status string `json:"status"`
	} `json:"CALLINFO"`
}

// AuthCheck verifies that the token still identifies a live vault session.
//
// It returns (false, nil) when the vault answers with a non-2xx status: the
// token is simply not valid, which the caller recovers from via a refresh.
// It fails with ErrVaultUnreachable when no connection can be established at
// all, and with ErrAuthProtocol when the vault answers 2xx but the body does
// not carry the expected success marker; neither is a token problem and
// neither is retried here.
func (c *Client) AuthCheck(ctx context.Context, token string) (bool, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return false, fmt.Errorf("encode auth check payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/check", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build auth check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Current protocol carries the token in a header; older vaults read it
	// from the body. Send both.
	req.Header.Set(TokenHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, NewUnreachableError(c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.hook.OnTrace(ctx, "auth check not ok", map[string]any{"status": resp.StatusCode})
		return false, nil
	}

	var parsed authCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("%w: %w", ErrAuthProtocol, err)
	}
	if parsed.CallInfo.Status != AuthSuccessMarker {
		return false, fmt.Errorf("%w: session not authenticated, CALLINFO.status is %q", ErrAuthProtocol, parsed.CallInfo.Status)
	}

	c.hook.OnTrace(ctx, "token auth check success", nil)
	return true, nil
}

type objectResponse struct {
	Object   []json.RawMessage `json:"OBJECT"`
	FileData string            `json:"FILEDATA"`
}

type objectEntry struct {
	Crypted map[string]any `json:"crypted"`
	Public  map[string]any `json:"public"`
}

// FetchObject retrieves one decrypted field (or the attached file content)
// from a vault object and reports the result as a FetchOutcome.
//
// On a < 400 response the field is extracted from the object's encrypted
// field map, then its public field map, then the entry's top level, first
// hit wins. A download term skips the field maps entirely and only decodes
// the base64 FILEDATA blob. A connection-level failure fails with
// ErrVaultUnreachable; everything the vault actually answered is expressed
// in the outcome, never as an error.
func (c *Client) FetchObject(ctx context.Context, token string, term LookupTerm) (FetchOutcome, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("decrypt", "true")
	if term.IsDownload() {
		q.Set("filedata", "true")
		c.hook.OnTrace(ctx, "requesting file content", map[string]any{"objectid": term.ObjectID})
	}

	reqURL := c.baseURL + "/object/" + url.PathEscape(term.ObjectID) + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("build object request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchOutcome{}, NewUnreachableError(c.baseURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		c.hook.OnTrace(ctx, "token rejected when retrieving item", map[string]any{"objectid": term.ObjectID})
		return FetchOutcome{Kind: OutcomeTokenRejected}, nil
	case resp.StatusCode >= 400:
		return FetchOutcome{Kind: OutcomeTransientFailure, StatusCode: resp.StatusCode}, nil
	}

	var data objectResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.hook.OnTrace(ctx, "unparseable object response", map[string]any{"objectid": term.ObjectID})
		return FetchOutcome{Kind: OutcomeMalformed}, nil
	}

	if term.IsDownload() {
		return c.decodeFileData(ctx, data)
	}

	if len(data.Object) == 0 {
		return FetchOutcome{Kind: OutcomeMalformed}, nil
	}
	value, found := extractField(data.Object[0], term.FieldName)
	if !found || value == "" {
		return FetchOutcome{Kind: OutcomeMalformed}, nil
	}
	return FetchOutcome{Kind: OutcomeSuccess, Value: value}, nil
}

func (c *Client) decodeFileData(ctx context.Context, data objectResponse) (FetchOutcome, error) {
	if data.FileData == "" {
		return FetchOutcome{Kind: OutcomeMalformed}, nil
	}
	content, err := base64.StdEncoding.DecodeString(data.FileData)
	if err != nil {
		return FetchOutcome{Kind: OutcomeMalformed}, nil
	}
	c.hook.OnTrace(ctx, "returning base64 decoded file content", nil)
	return FetchOutcome{Kind: OutcomeSuccess, Value: string(content)}, nil
}

// extractField resolves a field name against one OBJECT entry in the
// documented order: encrypted field map, public field map, top level. The
// first map that contains the key decides, even when its value is empty.
func extractField(raw json.RawMessage, fieldName string) (string, bool) {
	var entry objectEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false
	}
	if v, ok := entry.Crypted[fieldName]; ok {
		return cast.ToString(v), true
	}
	if v, ok := entry.Public[fieldName]; ok {
		return cast.ToString(v), true
	}

	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", false
	}
	if v, ok := top[fieldName]; ok {
		return cast.ToString(v), true
	}
	return "", false
}
