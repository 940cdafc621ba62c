package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"plughub/device"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 15 * time.Second

// Bridge mirrors OnOff devices onto MQTT: the state is published retained
// on <prefix>/<name> and commands are read from <prefix>/<name>/set.
type Bridge struct {
	client paho.Client
	prefix string
}

func NewBridge(client paho.Client, prefix string) *Bridge {
	return &Bridge{client: client, prefix: prefix}
}

func (b *Bridge) stateTopic(name device.InternalName) string {
	return fmt.Sprintf("%s/%s", b.prefix, name)
}

func (b *Bridge) setTopic(name device.InternalName) string {
	return b.stateTopic(name) + "/set"
}

func (b *Bridge) Publish(name device.InternalName, on bool) {
	payload, err := json.Marshal(OnOffState{State: on})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal state")
		return
	}

	if token := b.client.Publish(b.stateTopic(name), 1, true, payload); token.Wait() && token.Error() != nil {
		logrus.WithError(token.Error()).WithField("device", name).Warn("Failed to publish state")
	}
}

func (b *Bridge) handler(d device.OnOff) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		log := logrus.WithField("device", d.GetID())

		var message OnOffState
		if err := json.Unmarshal(msg.Payload(), &message); err != nil {
			log.WithError(err).Warn("Invalid set payload")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := d.SetOnOff(ctx, message.State); err != nil {
			log.WithError(err).Warn("Failed to apply set command")
		}
	}
}

// Register subscribes to the set topic of d.
func (b *Bridge) Register(d device.OnOff) error {
	if token := b.client.Subscribe(b.setTopic(d.GetID()), 1, b.handler(d)); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}

func (b *Bridge) Unregister(d device.OnOff) error {
	if token := b.client.Unsubscribe(b.setTopic(d.GetID())); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}
