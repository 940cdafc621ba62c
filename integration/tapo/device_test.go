package tapo

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testCookie = "TP_SESSIONID=0123456789ABCDEF"
	testToken  = "token-abc"
)

type call struct {
	URL             string
	Cookie          string
	Method          string
	Params          json.RawMessage
	RequestTimeMils int64
}

// fakeDevice plays the plug side of the protocol. The handshake really
// RSA encrypts the key material with the key the client sent and every
// passthrough is really AES decrypted and encrypted again.
type fakeDevice struct {
	t *testing.T

	mu     sync.Mutex
	km     KeyMaterial
	cipher *Cipher

	info DeviceInfo

	handshakeCode   int
	handshakeKey    string
	noCookie        bool
	fail            map[string]error
	outerCode       map[string]int
	innerCode       map[string]int
	raw             map[string]string
	handshakeParams []handshakeParams
	calls           []call
}

func newFakeDevice(t *testing.T) *fakeDevice {
	var km KeyMaterial
	_, err := io.ReadFull(rand.Reader, km.Key[:])
	require.NoError(t, err)
	_, err = io.ReadFull(rand.Reader, km.IV[:])
	require.NoError(t, err)

	c, err := NewCipher(km)
	require.NoError(t, err)

	return &fakeDevice{
		t:         t,
		km:        km,
		cipher:    c,
		fail:      make(map[string]error),
		outerCode: make(map[string]int),
		innerCode: make(map[string]int),
		raw:       make(map[string]string),
		info: DeviceInfo{
			DeviceID: "8022A1B2C3D4E5F6",
			Nickname: base64.StdEncoding.EncodeToString([]byte("Living Room Plug")),
			Model:    "P100",
			HwID:     "HW0011223344",
			FwVer:    "1.4.9 Build 20220310",
			HwVer:    "1.0.0",
		},
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	b, err := json.Marshal(v)
	require.NoError(t, err)

	return b
}

func (d *fakeDevice) respond(v any, header http.Header) *Response {
	if header == nil {
		header = http.Header{}
	}

	return &Response{Status: http.StatusOK, Header: header, Body: mustJSON(d.t, v)}
}

// tapo.Transport
var _ Transport = (*fakeDevice)(nil)

func (d *fakeDevice) Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	require.NoError(d.t, json.Unmarshal(body, &req))

	if req.Method == methodHandshake {
		return d.handshake(req.Params)
	}

	require.Equal(d.t, methodSecurePassthrough, req.Method)

	var params passthroughParams
	require.NoError(d.t, json.Unmarshal(req.Params, &params))

	plaintext, err := d.cipher.Decrypt(params.Request)
	require.NoError(d.t, err)

	var inner struct {
		Method          string          `json:"method"`
		Params          json.RawMessage `json:"params"`
		RequestTimeMils int64           `json:"requestTimeMils"`
	}
	require.NoError(d.t, json.Unmarshal(plaintext, &inner))

	d.calls = append(d.calls, call{
		URL:             url,
		Cookie:          header.Get("Cookie"),
		Method:          inner.Method,
		Params:          inner.Params,
		RequestTimeMils: inner.RequestTimeMils,
	})

	if err := d.fail[inner.Method]; err != nil {
		return nil, err
	}
	if code := d.outerCode[inner.Method]; code != 0 {
		return d.respond(reply{ErrorCode: code}, nil), nil
	}
	if header.Get("Cookie") != testCookie {
		return d.respond(reply{ErrorCode: 9999}, nil), nil
	}

	var payload []byte
	if raw, ok := d.raw[inner.Method]; ok {
		payload = []byte(raw)
	} else if code := d.innerCode[inner.Method]; code != 0 {
		payload = mustJSON(d.t, reply{ErrorCode: code})
	} else {
		payload = mustJSON(d.t, reply{Result: d.result(inner.Method, inner.Params)})
	}

	result := passthroughResult{Response: d.cipher.Encrypt(payload)}
	return d.respond(reply{Result: mustJSON(d.t, result)}, nil), nil
}

func (d *fakeDevice) result(method string, params json.RawMessage) json.RawMessage {
	switch method {
	case methodLogin:
		return mustJSON(d.t, loginResult{Token: testToken})
	case methodSetDeviceInfo:
		var p setDeviceInfoParams
		require.NoError(d.t, json.Unmarshal(params, &p))
		d.info.DeviceOn = p.DeviceOn
		return nil
	case methodGetDeviceInfo:
		return mustJSON(d.t, d.info)
	default:
		d.t.Fatalf("unexpected method %s", method)
		return nil
	}
}

func (d *fakeDevice) handshake(raw json.RawMessage) (*Response, error) {
	var params handshakeParams
	require.NoError(d.t, json.Unmarshal(raw, &params))
	d.handshakeParams = append(d.handshakeParams, params)

	if err := d.fail[methodHandshake]; err != nil {
		return nil, err
	}
	if d.handshakeCode != 0 {
		return d.respond(reply{ErrorCode: d.handshakeCode}, nil), nil
	}

	key := d.handshakeKey
	if key == "" {
		block, _ := pem.Decode([]byte(params.Key))
		require.NotNil(d.t, block)
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		require.NoError(d.t, err)

		material := append(append([]byte{}, d.km.Key[:]...), d.km.IV[:]...)
		encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub.(*rsa.PublicKey), material)
		require.NoError(d.t, err)
		key = base64.StdEncoding.EncodeToString(encrypted)
	}

	header := http.Header{}
	if !d.noCookie {
		header.Add("Set-Cookie", testCookie+";TIMEOUT=1440")
		header.Add("Set-Cookie", "other=1")
	}

	return d.respond(reply{Result: mustJSON(d.t, handshakeResult{Key: key})}, header), nil
}

func (d *fakeDevice) lastCall() call {
	d.mu.Lock()
	defer d.mu.Unlock()

	require.NotEmpty(d.t, d.calls)
	return d.calls[len(d.calls)-1]
}

// ServeHTTP lets the same fake sit behind an httptest.Server.
func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	require.NoError(d.t, err)

	resp, err := d.Post(r.Context(), "http://"+r.Host+r.URL.String(), body, r.Header)
	if err != nil {
		if errors.Is(err, errHangUp) {
			hj, ok := w.(http.Hijacker)
			require.True(d.t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(d.t, err)
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

var errHangUp = errors.New("hang up")
