package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"plughub/device"
	"plughub/home"
	"plughub/integration/mqtt"
	"plughub/integration/ntfy"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// autoOff switches a device off again once it has been on for a while. The
// state is taken from the retained state topic of the bridge.
type autoOff struct {
	name   device.InternalName
	after  time.Duration
	home   *home.Home
	notify *ntfy.Notify

	mu    sync.Mutex
	timer *time.Timer
}

func autoOffAutomation(client paho.Client, prefix string, notify *ntfy.Notify, home *home.Home, name device.InternalName, after time.Duration) error {
	a := &autoOff{name: name, after: after, home: home, notify: notify}

	return on(client, fmt.Sprintf("%s/%s", prefix, name), a.update)
}

func (a *autoOff) update(message mqtt.OnOffState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	if message.State {
		a.timer = time.AfterFunc(a.after, a.expire)
	}
}

func (a *autoOff) expire() {
	log := logrus.WithField("device", a.name)
	log.Infof("Turning %s automatically off", a.name.Name())

	d, err := device.GetDevice[device.OnOff](a.home.Devices(), a.name)
	if err != nil {
		log.WithError(err).Warn("Device not found")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), switchTimeout)
	defer cancel()

	if err := d.SetOnOff(ctx, false); err != nil {
		log.WithError(err).Warn("Failed to turn off")
		if err := a.notify.Failed(ctx, a.name, err); err != nil {
			log.WithError(err).Warn("Failed to send notification")
		}
	}
}
