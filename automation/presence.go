package automation

import (
	"context"

	"plughub/home"
	"plughub/integration/ntfy"
	"plughub/presence"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

func presenceAutomation(client paho.Client, notify *ntfy.Notify, home *home.Home) error {
	return on(client, presence.Topic, func(message presence.Message) {
		logrus.Infof("Presence: %t", message.State)

		ctx, cancel := context.WithTimeout(context.Background(), switchTimeout)
		defer cancel()

		if !message.State {
			logrus.Info("Turn off all the devices")

			// @TODO Allow for exceptions, could be a list in the config that we check against
			for name, err := range home.TurnAllOff(ctx) {
				logrus.WithError(err).WithField("device", name).Warn("Failed to turn off")
				if err := notify.Failed(ctx, name, err); err != nil {
					logrus.WithError(err).Warn("Failed to send notification")
				}
			}
		}

		// Notify users of presence update
		if err := notify.Presence(ctx, message.State); err != nil {
			logrus.WithError(err).Warn("Failed to send notification")
		}
	})
}
