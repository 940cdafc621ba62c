package automation

import (
	"encoding/json"
	"time"

	"plughub/device"
	"plughub/home"
	"plughub/integration/ntfy"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// How long an automation may spend switching devices.
const switchTimeout = 30 * time.Second

func on[M any](client paho.Client, topic string, onMessage func(message M)) error {
	var handler paho.MessageHandler = func(c paho.Client, m paho.Message) {
		if len(m.Payload()) == 0 {
			// In this case we clear the persistent message
			return
		}

		var message M
		if err := json.Unmarshal(m.Payload(), &message); err != nil {
			logrus.WithError(err).WithField("topic", m.Topic()).Warn("Invalid message")
			return
		}

		if onMessage != nil {
			onMessage(message)
		}
	}

	if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func RegisterAutomations(client paho.Client, prefix string, notify *ntfy.Notify, home *home.Home, autoOff map[device.InternalName]time.Duration) error {
	if err := presenceAutomation(client, notify, home); err != nil {
		return err
	}

	for name, after := range autoOff {
		if err := autoOffAutomation(client, prefix, notify, home, name, after); err != nil {
			return err
		}
	}

	return nil
}
