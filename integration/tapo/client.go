package tapo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle of a Client. It only ever moves forward; a new
// session needs a new Client.
type State int

const (
	StateUninitialized State = iota
	StateHandshakeComplete
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshakeComplete:
		return "handshake-complete"
	case StateLoggedIn:
		return "logged-in"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Option func(*Client)

func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client is one authenticated session with one plug. All calls are
// serialized, so at most one request is in flight per Client.
type Client struct {
	mu sync.Mutex

	host      string
	transport Transport
	log       logrus.FieldLogger
	now       func() time.Time

	credentials EncodedCredentials
	keys        *KeyPair
	handshaker  *Handshaker

	state  State
	cipher *Cipher
	cookie string
	token  string

	// Guarded by infoMu so the accessors never wait for a request.
	infoMu sync.RWMutex
	info   *DeviceInfo
}

// NewClient encodes the credentials and generates the session key pair.
// No network traffic happens until Handshake.
func NewClient(host, email, password string, opts ...Option) (*Client, error) {
	if host == "" || email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		host:        host,
		log:         logrus.StandardLogger(),
		now:         time.Now,
		credentials: EncodeCredentials(email, password),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(DefaultTimeout)
	}

	c.log = c.log.WithFields(logrus.Fields{
		"host":    host,
		"session": uuid.New().String(),
	})

	keys, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	c.keys = keys
	c.handshaker = NewHandshaker(c.transport, c.log, c.now)

	c.log.Debug("Created session")

	return c, nil
}

func (c *Client) Host() string {
	return c.host
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) url(withToken bool) string {
	u := fmt.Sprintf("http://%s/app", c.host)
	if withToken {
		u += "?token=" + url.QueryEscape(c.token)
	}

	return u
}

// Handshake negotiates the session key. It is only valid on a fresh Client
// or after a failed handshake.
func (c *Client) Handshake(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		return &StateError{Op: methodHandshake, State: c.state}
	}

	km, cookie, err := c.handshaker.Handshake(ctx, c.url(false), c.keys)
	if err != nil {
		c.log.WithError(err).Warn("Handshake failed")
		return err
	}

	cipher, err := NewCipher(km)
	if err != nil {
		return &CryptoError{Op: methodHandshake, Err: err}
	}

	c.cipher = cipher
	c.cookie = cookie
	c.state = StateHandshakeComplete
	c.log.Debug("Handshake complete")

	return nil
}

func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state < StateHandshakeComplete {
		return &StateError{Op: methodLogin, State: c.state}
	}

	params := loginParams{Username: c.credentials.Email, Password: c.credentials.Password}
	raw, err := c.passthrough(ctx, methodLogin, params, false)
	if err != nil {
		c.log.WithError(err).Warn("Login failed")
		return err
	}

	var result loginResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return &CryptoError{Op: methodLogin, Err: err}
	}
	if result.Token == "" {
		return &CryptoError{Op: methodLogin, Err: fmt.Errorf("login result has no token")}
	}

	c.token = result.Token
	c.state = StateLoggedIn
	c.log.Debug("Logged in")

	return nil
}

// Connect runs Handshake and Login, stopping at the first failure.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Handshake(ctx); err != nil {
		return err
	}

	return c.Login(ctx)
}

func (c *Client) TurnOn(ctx context.Context) error {
	return c.setDeviceOn(ctx, true)
}

func (c *Client) TurnOff(ctx context.Context) error {
	return c.setDeviceOn(ctx, false)
}

func (c *Client) SetPowerState(ctx context.Context, on bool) error {
	if on {
		return c.TurnOn(ctx)
	}

	return c.TurnOff(ctx)
}

func (c *Client) setDeviceOn(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoggedIn {
		return &StateError{Op: methodSetDeviceInfo, State: c.state}
	}

	if _, err := c.passthrough(ctx, methodSetDeviceInfo, setDeviceInfoParams{DeviceOn: on}, true); err != nil {
		c.log.WithError(err).WithField("device_on", on).Warn("Failed to set power state")
		return err
	}

	c.log.WithField("device_on", on).Debug("Set power state")

	return nil
}

// GetDeviceInfo fetches and caches the device info. The cache is only
// replaced when the whole response decoded.
func (c *Client) GetDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLoggedIn {
		return nil, &StateError{Op: methodGetDeviceInfo, State: c.state}
	}

	raw, err := c.passthrough(ctx, methodGetDeviceInfo, nil, true)
	if err != nil {
		c.log.WithError(err).Warn("Failed to get device info")
		return nil, err
	}

	var info DeviceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &CryptoError{Op: methodGetDeviceInfo, Err: err}
	}

	c.infoMu.Lock()
	c.info = &info
	c.infoMu.Unlock()
	c.log.Debug(pretty.Sprint(info))

	result := info
	return &result, nil
}

// passthrough encrypts an inner command, posts it in the secure passthrough
// envelope and returns the decrypted inner result. Must be called with mu
// held.
func (c *Client) passthrough(ctx context.Context, method string, params any, withToken bool) (json.RawMessage, error) {
	inner, err := json.Marshal(cmd{
		Method:          method,
		Params:          params,
		RequestTimeMils: requestTime(c.now()),
	})
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(cmd{
		Method: methodSecurePassthrough,
		Params: passthroughParams{Request: c.cipher.Encrypt(inner)},
	})
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Cookie", c.cookie)

	resp, err := c.transport.Post(ctx, c.url(withToken), body, header)
	if err != nil {
		return nil, &TransportError{Op: method, Err: err}
	}

	var outer reply
	if err := json.Unmarshal(resp.Body, &outer); err != nil {
		return nil, &TransportError{Op: method, Err: fmt.Errorf("status %d: %w", resp.Status, err)}
	}
	if outer.ErrorCode != 0 {
		return nil, newProtocolError(method, outer.ErrorCode, false)
	}

	var result passthroughResult
	if err := json.Unmarshal(outer.Result, &result); err != nil {
		return nil, &CryptoError{Op: method, Err: fmt.Errorf("passthrough result: %w", err)}
	}

	plaintext, err := c.cipher.Decrypt(result.Response)
	if err != nil {
		return nil, &CryptoError{Op: method, Err: err}
	}

	var r reply
	if err := json.Unmarshal(plaintext, &r); err != nil {
		return nil, &CryptoError{Op: method, Err: fmt.Errorf("inner response: %w", err)}
	}
	if r.ErrorCode != 0 {
		return nil, newProtocolError(method, r.ErrorCode, true)
	}

	return r.Result, nil
}

func (c *Client) cached() *DeviceInfo {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()

	return c.info
}

// ID is the cached device id, empty before the first GetDeviceInfo.
func (c *Client) ID() string {
	if info := c.cached(); info != nil {
		return info.DeviceID
	}
	return ""
}

func (c *Client) Name() string {
	if info := c.cached(); info != nil {
		return info.Name()
	}
	return ""
}

func (c *Client) Model() string {
	if info := c.cached(); info != nil {
		return info.Model
	}
	return ""
}

// SerialNumber reports the hardware id.
func (c *Client) SerialNumber() string {
	if info := c.cached(); info != nil {
		return info.HwID
	}
	return ""
}

func (c *Client) FirmwareRevision() string {
	if info := c.cached(); info != nil {
		return info.FwVer
	}
	return ""
}

func (c *Client) HardwareRevision() string {
	if info := c.cached(); info != nil {
		return info.HwVer
	}
	return ""
}

func (c *Client) DeviceOn() bool {
	if info := c.cached(); info != nil {
		return info.DeviceOn
	}
	return false
}
