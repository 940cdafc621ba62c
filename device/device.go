package device

import (
	"context"
	"fmt"
)

type Basic interface {
	GetID() InternalName
}

type OnOff interface {
	Basic

	SetOnOff(ctx context.Context, on bool) error
	GetOnOff(ctx context.Context) (bool, error)
}

// Registry holds every device known to the daemon by name.
type Registry map[InternalName]Basic

func GetDevices[K any](devices Registry) map[InternalName]K {
	devs := make(map[InternalName]K)

	for name, device := range devices {
		if dev, ok := device.(K); ok {
			devs[name] = dev
		}
	}

	return devs
}

func GetDevice[K any](devices Registry, name InternalName) (K, error) {
	var noop K

	d, ok := devices[name]
	if !ok {
		return noop, fmt.Errorf("device '%s' does not exist", name)
	}

	dev, ok := d.(K)
	if !ok {
		return noop, fmt.Errorf("device '%s' is not the expected type", name)
	}

	return dev, nil
}
