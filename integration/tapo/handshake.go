package tapo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type HandshakeState int

const (
	HandshakeIdle HandshakeState = iota
	HandshakeAwaitingResponse
	HandshakeComplete
	HandshakeFailed
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeIdle:
		return "idle"
	case HandshakeAwaitingResponse:
		return "awaiting-response"
	case HandshakeComplete:
		return "complete"
	case HandshakeFailed:
		return "failed"
	default:
		return fmt.Sprintf("HandshakeState(%d)", int(s))
	}
}

// Handshaker performs the single plaintext exchange of the protocol and
// recovers the session key material and cookie from it.
type Handshaker struct {
	transport Transport
	log       logrus.FieldLogger
	now       func() time.Time

	state HandshakeState
}

func NewHandshaker(transport Transport, log logrus.FieldLogger, now func() time.Time) *Handshaker {
	if now == nil {
		now = time.Now
	}

	return &Handshaker{transport: transport, log: log, now: now}
}

func (h *Handshaker) State() HandshakeState {
	return h.state
}

// Handshake sends our public key to url and returns what the device
// negotiated. On failure the state ends in HandshakeFailed and a new
// attempt may be made.
func (h *Handshaker) Handshake(ctx context.Context, url string, keys *KeyPair) (KeyMaterial, string, error) {
	if h.state == HandshakeAwaitingResponse || h.state == HandshakeComplete {
		return KeyMaterial{}, "", fmt.Errorf("tapo: handshake already %s", h.state)
	}

	km, cookie, err := h.exchange(ctx, url, keys)
	if err != nil {
		h.state = HandshakeFailed
		return KeyMaterial{}, "", err
	}

	h.state = HandshakeComplete
	return km, cookie, nil
}

func (h *Handshaker) exchange(ctx context.Context, url string, keys *KeyPair) (KeyMaterial, string, error) {
	body, err := json.Marshal(cmd{
		Method: methodHandshake,
		Params: handshakeParams{
			Key:             keys.PublicPEM,
			RequestTimeMils: requestTime(h.now()),
		},
	})
	if err != nil {
		return KeyMaterial{}, "", err
	}

	h.state = HandshakeAwaitingResponse
	h.log.Debug("Sending handshake")

	resp, err := h.transport.Post(ctx, url, body, http.Header{})
	if err != nil {
		return KeyMaterial{}, "", &TransportError{Op: methodHandshake, Err: err}
	}

	var r reply
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return KeyMaterial{}, "", &TransportError{Op: methodHandshake, Err: fmt.Errorf("status %d: %w", resp.Status, err)}
	}

	if r.ErrorCode != 0 {
		return KeyMaterial{}, "", newProtocolError(methodHandshake, r.ErrorCode, false)
	}

	km, err := h.recoverKey(r.Result, keys)
	if err != nil {
		return KeyMaterial{}, "", &CryptoError{Op: methodHandshake, Err: err}
	}

	cookie, err := sessionCookie(resp.Header)
	if err != nil {
		return KeyMaterial{}, "", &CryptoError{Op: methodHandshake, Err: err}
	}

	return km, cookie, nil
}

func (h *Handshaker) recoverKey(raw json.RawMessage, keys *KeyPair) (KeyMaterial, error) {
	var result handshakeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return KeyMaterial{}, fmt.Errorf("handshake result: %w", err)
	}
	if result.Key == "" {
		return KeyMaterial{}, errors.New("handshake result has no key")
	}

	encrypted, err := base64.StdEncoding.DecodeString(result.Key)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("decode key: %w", err)
	}

	decrypted, err := keys.decrypt(encrypted)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("decrypt key: %w", err)
	}

	return keyMaterialFrom(decrypted)
}

// Only the first cookie counts, without its attributes.
func sessionCookie(header http.Header) (string, error) {
	cookies := header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return "", errors.New("handshake response has no session cookie")
	}

	cookie, _, _ := strings.Cut(cookies[0], ";")
	if cookie == "" {
		return "", errors.New("handshake response has an empty session cookie")
	}

	return cookie, nil
}
