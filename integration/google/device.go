package google

import "context"

// DeviceInterface is implemented by everything exposed to Google Home.
type DeviceInterface interface {
	Sync(ctx context.Context) *Device
	Query(ctx context.Context) DeviceState
	Execute(ctx context.Context, execution Execution, updatedState *DeviceState) (errCode string, online bool)
}

type DeviceName struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	HwVersion    string `json:"hwVersion,omitempty"`
	SwVersion    string `json:"swVersion,omitempty"`
}

type Device struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	Traits []Trait `json:"traits"`

	Name DeviceName `json:"name"`

	WillReportState bool `json:"willReportState"`

	RoomHint string `json:"roomHint,omitempty"`

	DeviceInfo DeviceInfo `json:"deviceInfo,omitempty"`

	Attributes map[string]interface{} `json:"attributes,omitempty"`

	CustomData map[string]interface{} `json:"customData,omitempty"`
}

func NewDevice(id string, typ Type) *Device {
	return &Device{
		ID:         id,
		Type:       typ,
		Attributes: make(map[string]interface{}),
		CustomData: make(map[string]interface{}),
	}
}
