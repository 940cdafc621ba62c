package google

import (
	"encoding/json"
)

type Intent string

const (
	IntentSync       Intent = "action.devices.SYNC"
	IntentQuery      Intent = "action.devices.QUERY"
	IntentExecute    Intent = "action.devices.EXECUTE"
	IntentDisconnect Intent = "action.devices.DISCONNECT"
)

type DeviceHandle struct {
	ID string `json:"id"`

	CustomData map[string]interface{} `json:"customData,omitempty"`
}

type queryPayload struct {
	Devices []DeviceHandle `json:"devices"`
}

type Command struct {
	Devices   []DeviceHandle `json:"devices"`
	Execution []Execution    `json:"execution"`
}

type executePayload struct {
	Commands []Command `json:"commands"`
}

type fullfilmentInput struct {
	Intent Intent

	Query   *queryPayload
	Execute *executePayload
}

type FullfillmentRequest struct {
	RequestID string             `json:"requestId"`
	Inputs    []fullfilmentInput `json:"inputs"`
}

func (i *fullfilmentInput) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Intent  Intent          `json:"intent"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	i.Intent = tmp.Intent
	switch i.Intent {
	case IntentQuery:
		i.Query = &queryPayload{}
		return json.Unmarshal(tmp.Payload, i.Query)

	case IntentExecute:
		i.Execute = &executePayload{}
		return json.Unmarshal(tmp.Payload, i.Execute)
	}

	return nil
}
