package google

import (
	"encoding/json"
)

type DeviceState struct {
	Online bool
	Status Status

	state map[string]interface{}
}

func (ds DeviceState) MarshalJSON() ([]byte, error) {
	payload := make(map[string]interface{})

	payload["online"] = ds.Online
	if len(ds.Status) > 0 {
		payload["status"] = ds.Status
	}

	for k, v := range ds.state {
		payload[k] = v
	}

	return json.Marshal(payload)
}

func NewDeviceState(online bool) DeviceState {
	return DeviceState{
		Online: online,
		state:  make(map[string]interface{}),
	}
}

// https://developers.google.com/assistant/smarthome/traits/onoff
func (ds DeviceState) RecordOnOff(on bool) DeviceState {
	ds.state["on"] = on

	return ds
}
