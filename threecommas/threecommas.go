// Package threecommas is a minimal signed client for the 3commas bot
// API. Every call is a GET whose query string is signed with the
// credential pair matching the operation's privilege level.
package threecommas

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marketfall/marketfall"
	"github.com/marketfall/marketfall/metrics"
	"github.com/marketfall/marketfall/retry"
)

const (
	defaultBaseURL = "https://api.3commas.io"
	requestTimeout = 10 * time.Second
)

// Privilege is the credential class an operation requires.
type Privilege int

const (
	PrivilegeRead Privilege = iota
	PrivilegeTrade
)

func (p Privilege) String() string {
	if p == PrivilegeTrade {
		return "trading"
	}
	return "read"
}

// Credentials is one API key pair.
type Credentials struct {
	Key    string
	Secret string
}

// Empty reports whether the pair is unusable.
func (c Credentials) Empty() bool {
	return c.Key == "" || c.Secret == ""
}

// Keyring holds the two credential pairs the API distinguishes. The
// read-only pair can never start, stop, or sell anything, so every
// operation picks its pair by privilege rather than sharing one key.
type Keyring struct {
	ReadOnly Credentials
	Trading  Credentials
}

// For selects the pair matching the privilege level.
func (k Keyring) For(p Privilege) Credentials {
	if p == PrivilegeTrade {
		return k.Trading
	}
	return k.ReadOnly
}

// Operation names one API endpoint and the privilege it needs.
// Entity identifiers (bot_id, deal_id) travel as query parameters.
type Operation struct {
	Name      string
	Path      string
	Privilege Privilege
}

var (
	ListBots    = Operation{Name: "list_bots", Path: "/public/api/ver1/bots", Privilege: PrivilegeRead}
	GetBotStats = Operation{Name: "bot_stats", Path: "/public/api/ver1/bots/stats", Privilege: PrivilegeRead}
	GetDeals    = Operation{Name: "list_deals", Path: "/public/api/ver1/deals", Privilege: PrivilegeRead}
	GetAccounts = Operation{Name: "list_accounts", Path: "/public/api/ver1/accounts", Privilege: PrivilegeRead}

	StartBot      = Operation{Name: "start_bot", Path: "/public/api/ver1/bots/enable", Privilege: PrivilegeTrade}
	StopBot       = Operation{Name: "stop_bot", Path: "/public/api/ver1/bots/disable", Privilege: PrivilegeTrade}
	PanicSellDeal = Operation{Name: "panic_sell_deal", Path: "/public/api/ver1/deals/panic_sell", Privilege: PrivilegeTrade}
)

// Sign returns the hex HMAC-SHA256 of payload keyed with secret.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedPayload is the exact string the signature covers: the request
// path, plus "?" and the percent-encoded query when parameters exist.
func SignedPayload(op Operation, params url.Values) string {
	if enc := params.Encode(); enc != "" {
		return op.Path + "?" + enc
	}
	return op.Path
}

// Options configures a Client. The zero value uses the default retry
// policy, a ten-per-second rate limit, and no logging or metrics.
type Options struct {
	Policy  retry.Policy
	Limiter *rate.Limiter
	Logger  *zap.Logger
	Metrics *metrics.Registry
}

// Client issues signed requests against the bot API.
type Client struct {
	client  *http.Client
	baseURL string
	keyring Keyring
	policy  retry.Policy
	limiter *rate.Limiter
	log     *zap.Logger
	metrics *metrics.Registry
}

// New creates a client for the public endpoint.
func New(keyring Keyring, opts Options) *Client {
	return NewWithBaseURL(keyring, defaultBaseURL, opts)
}

// NewWithBaseURL creates a client against a custom endpoint, used by
// tests to point at a local server.
func NewWithBaseURL(keyring Keyring, baseURL string, opts Options) *Client {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: baseURL,
		keyring: keyring,
		policy:  opts.Policy,
		limiter: limiter,
		log:     log,
		metrics: opts.Metrics,
	}
}

// Call performs one signed GET for the operation and decodes the JSON
// response. Transient failures are retried under the client's policy;
// a 4xx status fails immediately.
func (c *Client) Call(ctx context.Context, op Operation, params url.Values) (marketfall.Value, error) {
	creds := c.keyring.For(op.Privilege)
	if creds.Empty() {
		return marketfall.Value{}, marketfall.WrapError(marketfall.ErrCredentials,
			fmt.Errorf("no %s pair configured for %s", op.Privilege, op.Name))
	}

	payload := SignedPayload(op, params)
	reqURL := c.baseURL + payload
	if _, err := url.Parse(reqURL); err != nil {
		return marketfall.Value{}, marketfall.WrapError(marketfall.ErrInvalidURL, err)
	}

	var result marketfall.Value
	err := c.policy.Do(ctx, func() error {
		return c.attempt(ctx, reqURL, payload, creds, &result)
	})

	if c.metrics != nil {
		c.metrics.RecordSignedRequest(op.Name, metrics.Outcome(err))
	}
	if err != nil {
		c.log.Warn("signed call failed",
			zap.String("operation", op.Name),
			zap.Stringer("privilege", op.Privilege),
			zap.Error(err))
		return marketfall.Value{}, err
	}
	c.log.Debug("signed call ok",
		zap.String("operation", op.Name),
		zap.Stringer("privilege", op.Privilege))
	return result, nil
}

func (c *Client) attempt(ctx context.Context, reqURL, payload string, creds Credentials, out *marketfall.Value) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return marketfall.WrapError(marketfall.ErrInvalidURL, err)
	}
	req.Header.Set("APIKEY", creds.Key)
	req.Header.Set("Signature", Sign(creds.Secret, payload))

	resp, err := c.client.Do(req)
	if err != nil {
		return marketfall.WrapError(marketfall.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return marketfall.UpstreamStatus(resp.StatusCode)
	}

	var v marketfall.Value
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return marketfall.WrapError(marketfall.ErrDecode, err)
	}
	if v.IsNull() {
		return marketfall.ErrNoData
	}
	*out = v
	return nil
}
