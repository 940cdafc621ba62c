package presence

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
)

const (
	DevicesTopic = "automation/presence/+"
	Topic        = "automation/presence"
)

type Presence struct {
	mu      sync.Mutex
	devices map[string]bool
	state   *bool
}

type Message struct {
	State   bool  `json:"state"`
	Updated int64 `json:"updated"`
}

func New(client paho.Client) (*Presence, error) {
	p := &Presence{devices: make(map[string]bool)}

	if token := client.Subscribe(DevicesTopic, 1, p.presenceHandler); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return p, nil
}

// current reports whether anyone is home. Unknown counts as away.
func (p *Presence) current() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state != nil && *p.state
}

// Handler for automation/presence/+, an empty payload removes the device
func (p *Presence) presenceHandler(client paho.Client, msg paho.Message) {
	name := strings.TrimPrefix(msg.Topic(), Topic+"/")

	p.mu.Lock()
	if len(msg.Payload()) == 0 {
		delete(p.devices, name)
	} else {
		var message Message
		if err := json.Unmarshal(msg.Payload(), &message); err != nil {
			p.mu.Unlock()
			logrus.WithError(err).WithField("topic", msg.Topic()).Warn("Invalid presence message")
			return
		}

		p.devices[name] = message.State
	}

	present := false
	for _, value := range p.devices {
		if value {
			present = true
			break
		}
	}
	logrus.Debug(pretty.Sprint(p.devices))

	changed := p.state == nil || *p.state != present
	if changed {
		p.state = &present
	}
	p.mu.Unlock()

	if !changed {
		return
	}

	payload, err := json.Marshal(Message{
		State:   present,
		Updated: time.Now().UnixMilli(),
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal presence")
		return
	}

	if token := client.Publish(Topic, 1, true, payload); token.Wait() && token.Error() != nil {
		logrus.WithError(token.Error()).Warn("Failed to publish presence")
	}
}
