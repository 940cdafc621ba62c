package mqtt

import (
	"encoding/json"
	"fmt"
)

// OnOffState is the {"state": "ON"} payload used on state and set topics.
type OnOffState struct {
	State bool
}

func (s OnOffState) MarshalJSON() ([]byte, error) {
	state := "OFF"
	if s.State {
		state = "ON"
	}

	return json.Marshal(struct {
		State string `json:"state"`
	}{state})
}

func (s *OnOffState) UnmarshalJSON(data []byte) error {
	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	switch payload.State {
	case "ON":
		s.State = true
	case "OFF":
		s.State = false
	default:
		return fmt.Errorf("unknown state '%s'", payload.State)
	}

	return nil
}
