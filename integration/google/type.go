package google

type Type string

// https://developers.google.com/assistant/smarthome/guides
const (
	TypeOutlet Type = "action.devices.types.OUTLET"
	TypeSwitch Type = "action.devices.types.SWITCH"
)

type Trait string

// https://developers.google.com/assistant/smarthome/traits/onoff
const TraitOnOff Trait = "action.devices.traits.OnOff"

func (d *Device) AddOnOffTrait(onlyCommand bool, onlyQuery bool) *Device {
	d.Traits = append(d.Traits, TraitOnOff)
	if onlyCommand {
		d.Attributes["commandOnlyOnOff"] = true
	}
	if onlyQuery {
		d.Attributes["queryOnlyOnOff"] = true
	}

	return d
}
