package tapo

import (
	"encoding/json"
	"time"
)

const (
	methodHandshake         = "handshake"
	methodSecurePassthrough = "securePassthrough"
	methodLogin             = "login_device"
	methodSetDeviceInfo     = "set_device_info"
	methodGetDeviceInfo     = "get_device_info"
)

// The device expects Date.now()*1000, milliseconds scaled by a thousand,
// despite the field name.
func requestTime(now time.Time) int64 {
	return now.UnixMilli() * 1000
}

type handshakeParams struct {
	Key             string `json:"key"`
	RequestTimeMils int64  `json:"requestTimeMils"`
}

type passthroughParams struct {
	Request string `json:"request"`
}

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type setDeviceInfoParams struct {
	DeviceOn bool `json:"device_on"`
}

// cmd is both the handshake body and the inner body of a passthrough.
type cmd struct {
	Method          string `json:"method"`
	Params          any    `json:"params,omitempty"`
	RequestTimeMils int64  `json:"requestTimeMils,omitempty"`
}

type reply struct {
	ErrorCode int             `json:"error_code"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type handshakeResult struct {
	Key string `json:"key"`
}

type passthroughResult struct {
	Response string `json:"response"`
}

type loginResult struct {
	Token string `json:"token"`
}
