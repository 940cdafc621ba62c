package tapo

import "encoding/base64"

// DeviceInfo is the result of get_device_info. Nickname and SSID are
// base64 encoded by the device.
type DeviceInfo struct {
	DeviceID    string  `json:"device_id"`
	Nickname    string  `json:"nickname"`
	Model       string  `json:"model"`
	Type        string  `json:"type"`
	HwID        string  `json:"hw_id"`
	FwID        string  `json:"fw_id"`
	OemID       string  `json:"oem_id"`
	FwVer       string  `json:"fw_ver"`
	HwVer       string  `json:"hw_ver"`
	MAC         string  `json:"mac"`
	IP          string  `json:"ip"`
	SSID        string  `json:"ssid"`
	RSSI        int     `json:"rssi"`
	SignalLevel int     `json:"signal_level"`
	Region      string  `json:"region"`
	DeviceOn    bool    `json:"device_on"`
	OnTime      float64 `json:"on_time"`
	Overheated  bool    `json:"overheated"`
}

// Name returns the decoded nickname. A nickname that is not valid base64 is
// returned unchanged.
func (d *DeviceInfo) Name() string {
	return decodeField(d.Nickname)
}

func (d *DeviceInfo) Network() string {
	return decodeField(d.SSID)
}

func decodeField(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}

	return string(b)
}
