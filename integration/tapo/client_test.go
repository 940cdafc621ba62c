package tapo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newTestClient(t *testing.T, d *fakeDevice) *Client {
	c, err := NewClient("192.168.1.50", "user@example.com", "hunter2",
		WithTransport(d),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	return c
}

func loggedIn(t *testing.T, d *fakeDevice) *Client {
	c := newTestClient(t, d)
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, StateLoggedIn, c.State())

	return c
}

func TestNewClient(t *testing.T) {
	for _, tc := range []struct {
		name, host, email, password string
	}{
		{"NoHost", "", "user@example.com", "hunter2"},
		{"NoEmail", "192.168.1.50", "", "hunter2"},
		{"NoPassword", "192.168.1.50", "user@example.com", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.host, tc.email, tc.password)
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}

	t.Run("Fresh", func(t *testing.T) {
		c := newTestClient(t, newFakeDevice(t))
		assert.Equal(t, StateUninitialized, c.State())
		assert.Equal(t, "192.168.1.50", c.Host())
	})
}

func TestClientRejectsOutOfOrderCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("BeforeHandshake", func(t *testing.T) {
		d := newFakeDevice(t)
		c := newTestClient(t, d)

		var stateErr *StateError
		assert.ErrorAs(t, c.Login(ctx), &stateErr)
		assert.ErrorAs(t, c.TurnOn(ctx), &stateErr)
		assert.ErrorAs(t, c.TurnOff(ctx), &stateErr)
		_, err := c.GetDeviceInfo(ctx)
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateUninitialized, stateErr.State)

		assert.Empty(t, d.calls)
		assert.Empty(t, d.handshakeParams)
	})

	t.Run("BeforeLogin", func(t *testing.T) {
		d := newFakeDevice(t)
		c := newTestClient(t, d)
		require.NoError(t, c.Handshake(ctx))

		var stateErr *StateError
		assert.ErrorAs(t, c.TurnOn(ctx), &stateErr)
		assert.ErrorAs(t, c.SetPowerState(ctx, false), &stateErr)
		_, err := c.GetDeviceInfo(ctx)
		require.ErrorAs(t, err, &stateErr)
		assert.Equal(t, StateHandshakeComplete, stateErr.State)

		assert.Empty(t, d.calls)
	})

	t.Run("SecondHandshake", func(t *testing.T) {
		c := loggedIn(t, newFakeDevice(t))

		var stateErr *StateError
		assert.ErrorAs(t, c.Handshake(ctx), &stateErr)
		assert.Equal(t, StateLoggedIn, c.State())
	})
}

func TestHandshake(t *testing.T) {
	ctx := context.Background()

	t.Run("Request", func(t *testing.T) {
		d := newFakeDevice(t)
		c := newTestClient(t, d)
		require.NoError(t, c.Handshake(ctx))

		require.Len(t, d.handshakeParams, 1)
		assert.Equal(t, c.keys.PublicPEM, d.handshakeParams[0].Key)
		assert.Equal(t, fixedNow.UnixMilli()*1000, d.handshakeParams[0].RequestTimeMils)
		assert.Equal(t, StateHandshakeComplete, c.State())
		assert.Equal(t, testCookie, c.cookie)
	})

	t.Run("TransportError", func(t *testing.T) {
		d := newFakeDevice(t)
		d.fail[methodHandshake] = errors.New("connection refused")
		c := newTestClient(t, d)

		var transportErr *TransportError
		require.ErrorAs(t, c.Handshake(ctx), &transportErr)
		assert.Equal(t, StateUninitialized, c.State())
		assert.Equal(t, HandshakeFailed, c.handshaker.State())

		// Nothing was committed, so the same client may try again.
		delete(d.fail, methodHandshake)
		require.NoError(t, c.Handshake(ctx))
		assert.Equal(t, StateHandshakeComplete, c.State())
	})

	t.Run("ErrorCode", func(t *testing.T) {
		d := newFakeDevice(t)
		d.handshakeCode = -1010
		c := newTestClient(t, d)

		var protoErr *ProtocolError
		require.ErrorAs(t, c.Handshake(ctx), &protoErr)
		assert.Equal(t, -1010, protoErr.Code)
		assert.Equal(t, "Invalid Public Key Length", protoErr.Message)
		assert.False(t, protoErr.Inner)
		assert.Equal(t, StateUninitialized, c.State())
		assert.Nil(t, c.cipher)
	})

	t.Run("GarbageKey", func(t *testing.T) {
		d := newFakeDevice(t)
		d.handshakeKey = "bm90IGFuIHJzYSBibG9jaw=="
		c := newTestClient(t, d)

		var cryptoErr *CryptoError
		require.ErrorAs(t, c.Handshake(ctx), &cryptoErr)
		assert.Equal(t, StateUninitialized, c.State())
	})

	t.Run("KeyNotBase64", func(t *testing.T) {
		d := newFakeDevice(t)
		d.handshakeKey = "%%%"
		c := newTestClient(t, d)

		var cryptoErr *CryptoError
		assert.ErrorAs(t, c.Handshake(ctx), &cryptoErr)
	})

	t.Run("NoCookie", func(t *testing.T) {
		d := newFakeDevice(t)
		d.noCookie = true
		c := newTestClient(t, d)

		var cryptoErr *CryptoError
		require.ErrorAs(t, c.Handshake(ctx), &cryptoErr)
		assert.Equal(t, StateUninitialized, c.State())
		assert.Empty(t, c.cookie)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)

		login := d.lastCall()
		assert.Equal(t, methodLogin, login.Method)
		assert.Equal(t, "http://192.168.1.50/app", login.URL)
		assert.Equal(t, testCookie, login.Cookie)
		assert.Equal(t, fixedNow.UnixMilli()*1000, login.RequestTimeMils)

		var params loginParams
		require.NoError(t, json.Unmarshal(login.Params, &params))
		assert.Equal(t, EncodeCredentials("user@example.com", "hunter2").Email, params.Username)
		assert.Equal(t, "aHVudGVyMg==", params.Password)

		assert.Equal(t, testToken, c.token)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		d := newFakeDevice(t)
		d.innerCode[methodLogin] = -1501
		c := newTestClient(t, d)
		require.NoError(t, c.Handshake(ctx))

		var protoErr *ProtocolError
		require.ErrorAs(t, c.Login(ctx), &protoErr)
		assert.Equal(t, -1501, protoErr.Code)
		assert.Equal(t, "Invalid Request or Credentials", protoErr.Message)
		assert.True(t, protoErr.Inner)
		assert.Empty(t, c.token)
		assert.Equal(t, StateHandshakeComplete, c.State())
	})

	t.Run("OuterError", func(t *testing.T) {
		d := newFakeDevice(t)
		d.outerCode[methodLogin] = 9999
		c := newTestClient(t, d)
		require.NoError(t, c.Handshake(ctx))

		var protoErr *ProtocolError
		require.ErrorAs(t, c.Login(ctx), &protoErr)
		assert.Equal(t, "Session timeout", protoErr.Message)
		assert.False(t, protoErr.Inner)
		assert.Empty(t, c.token)
	})

	t.Run("MissingToken", func(t *testing.T) {
		d := newFakeDevice(t)
		d.raw[methodLogin] = `{"error_code":0,"result":{}}`
		c := newTestClient(t, d)
		require.NoError(t, c.Handshake(ctx))

		var cryptoErr *CryptoError
		require.ErrorAs(t, c.Login(ctx), &cryptoErr)
		assert.Equal(t, StateHandshakeComplete, c.State())
	})
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("PowerState", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)

		require.NoError(t, c.TurnOn(ctx))
		on := d.lastCall()
		assert.Equal(t, methodSetDeviceInfo, on.Method)
		assert.Equal(t, "http://192.168.1.50/app?token="+testToken, on.URL)
		assert.JSONEq(t, `{"device_on":true}`, string(on.Params))
		assert.True(t, d.info.DeviceOn)

		require.NoError(t, c.SetPowerState(ctx, false))
		assert.JSONEq(t, `{"device_on":false}`, string(d.lastCall().Params))
		assert.False(t, d.info.DeviceOn)
	})

	t.Run("TransportError", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)
		d.fail[methodSetDeviceInfo] = context.DeadlineExceeded

		var transportErr *TransportError
		require.ErrorAs(t, c.TurnOn(ctx), &transportErr)
		assert.ErrorIs(t, transportErr, context.DeadlineExceeded)
		assert.Equal(t, StateLoggedIn, c.State())
	})

	t.Run("UnknownErrorCode", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)
		d.innerCode[methodSetDeviceInfo] = -40401

		var protoErr *ProtocolError
		require.ErrorAs(t, c.TurnOff(ctx), &protoErr)
		assert.Equal(t, "unknown error code -40401", protoErr.Message)
	})
}

func TestGetDeviceInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("Accessors", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)

		assert.Empty(t, c.Name())
		assert.Empty(t, c.ID())
		assert.Empty(t, c.Model())
		assert.Empty(t, c.SerialNumber())
		assert.Empty(t, c.FirmwareRevision())
		assert.Empty(t, c.HardwareRevision())
		assert.False(t, c.DeviceOn())

		info, err := c.GetDeviceInfo(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Living Room Plug", info.Name())

		assert.Equal(t, "Living Room Plug", c.Name())
		assert.Equal(t, "8022A1B2C3D4E5F6", c.ID())
		assert.Equal(t, "P100", c.Model())
		assert.Equal(t, "1.4.9 Build 20220310", c.FirmwareRevision())
		assert.Equal(t, "1.0.0", c.HardwareRevision())
	})

	// The accessor used to read hw_id and then return nothing.
	t.Run("SerialNumberIsHardwareID", func(t *testing.T) {
		c := loggedIn(t, newFakeDevice(t))
		_, err := c.GetDeviceInfo(ctx)
		require.NoError(t, err)

		assert.Equal(t, "HW0011223344", c.SerialNumber())
	})

	t.Run("MalformedBody", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)
		d.raw[methodGetDeviceInfo] = "this is not json"

		_, err := c.GetDeviceInfo(ctx)
		var cryptoErr *CryptoError
		require.ErrorAs(t, err, &cryptoErr)
		assert.Nil(t, c.info)
		assert.Empty(t, c.Name())
	})

	t.Run("FailureKeepsPreviousSnapshot", func(t *testing.T) {
		d := newFakeDevice(t)
		c := loggedIn(t, d)
		_, err := c.GetDeviceInfo(ctx)
		require.NoError(t, err)

		d.raw[methodGetDeviceInfo] = `{"error_code":0,"result":{"device_id":42}}`
		_, err = c.GetDeviceInfo(ctx)
		require.Error(t, err)
		assert.Equal(t, "8022A1B2C3D4E5F6", c.ID())
		assert.Equal(t, "Living Room Plug", c.Name())
	})

	t.Run("ReturnsCopy", func(t *testing.T) {
		c := loggedIn(t, newFakeDevice(t))
		info, err := c.GetDeviceInfo(ctx)
		require.NoError(t, err)

		info.Model = "changed"
		assert.Equal(t, "P100", c.Model())
	})
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	require.NoError(t, c.Handshake(ctx))
	require.NoError(t, c.Login(ctx))
	require.NoError(t, c.TurnOn(ctx))
	info, err := c.GetDeviceInfo(ctx)
	require.NoError(t, err)

	assert.True(t, info.DeviceOn)
	assert.True(t, c.DeviceOn())
	assert.Equal(t, "Living Room Plug", c.Name())
	assert.Equal(t, "8022A1B2C3D4E5F6", c.ID())
	assert.Equal(t, "P100", c.Model())
	assert.Equal(t, "HW0011223344", c.SerialNumber())

	methods := make([]string, 0, len(d.calls))
	for _, call := range d.calls {
		methods = append(methods, call.Method)
		assert.Equal(t, testCookie, call.Cookie)
	}
	assert.Equal(t, []string{methodLogin, methodSetDeviceInfo, methodGetDeviceInfo}, methods)
}

func TestEndToEndOverHTTP(t *testing.T) {
	ctx := context.Background()
	d := newFakeDevice(t)
	srv := httptest.NewServer(d)
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	c, err := NewClient(host, "user@example.com", "hunter2",
		WithTransport(NewHTTPTransport(time.Second)),
		WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.TurnOn(ctx))
	_, err = c.GetDeviceInfo(ctx)
	require.NoError(t, err)
	assert.True(t, c.DeviceOn())
	assert.Equal(t, "http://"+host+"/app?token="+testToken, d.lastCall().URL)

	t.Run("ConnectionDropped", func(t *testing.T) {
		d.mu.Lock()
		d.fail[methodSetDeviceInfo] = errHangUp
		d.mu.Unlock()

		var transportErr *TransportError
		assert.ErrorAs(t, c.TurnOff(ctx), &transportErr)
	})
}
