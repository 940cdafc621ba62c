package google

import (
	"encoding/json"
	"fmt"
)

type CommandName string

type Execution struct {
	Name CommandName

	OnOff *CommandOnOffData
}

func (c *Execution) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Name   CommandName     `json:"command"`
		Params json.RawMessage `json:"params,omitempty"`
	}

	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	c.Name = tmp.Name

	switch c.Name {
	case CommandOnOff:
		c.OnOff = &CommandOnOffData{}
		return json.Unmarshal(tmp.Params, c.OnOff)

	default:
		return fmt.Errorf("command (%s) is not implemented", c.Name)
	}
}

// https://developers.google.com/assistant/smarthome/traits/onoff
const CommandOnOff CommandName = "action.devices.commands.OnOff"

type CommandOnOffData struct {
	On bool `json:"on"`
}
