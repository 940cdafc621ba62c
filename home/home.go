package home

import (
	"context"
	"sync"

	"plughub/device"
	"plughub/integration/google"

	"github.com/sirupsen/logrus"
)

type Home struct {
	mu      sync.RWMutex
	devices device.Registry
}

func New() *Home {
	return &Home{devices: make(device.Registry)}
}

func (h *Home) AddDevice(d device.Basic) {
	h.mu.Lock()
	h.devices[d.GetID()] = d
	h.mu.Unlock()

	logrus.Infof("Added %s in %s (%s)", d.GetID().Name(), d.GetID().Room(), d.GetID())
}

// Devices returns a snapshot of the registry.
func (h *Home) Devices() device.Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	devices := make(device.Registry, len(h.devices))
	for name, d := range h.devices {
		devices[name] = d
	}

	return devices
}

func (h *Home) Device(name device.InternalName) (device.Basic, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	d, ok := h.devices[name]
	return d, ok
}

// google.Provider
var _ google.Provider = (*Home)(nil)

func (h *Home) Sync(ctx context.Context, _ string) ([]*google.Device, error) {
	var devices []*google.Device

	for _, d := range device.GetDevices[google.DeviceInterface](h.Devices()) {
		devices = append(devices, d.Sync(ctx))
	}

	return devices, nil
}

func (h *Home) Query(ctx context.Context, _ string, handles []google.DeviceHandle) (map[string]google.DeviceState, error) {
	states := make(map[string]google.DeviceState)
	devices := h.Devices()

	for _, handle := range handles {
		d, err := device.GetDevice[google.DeviceInterface](devices, device.InternalName(handle.ID))
		if err != nil {
			logrus.WithError(err).Warn("Query for unknown device")
			continue
		}

		states[handle.ID] = d.Query(ctx)
	}

	return states, nil
}

func (h *Home) Execute(ctx context.Context, _ string, commands []google.Command) (*google.ExecuteResponse, error) {
	resp := &google.ExecuteResponse{
		UpdatedState:  google.NewDeviceState(true),
		FailedDevices: make(map[string]struct{ Devices []string }),
	}
	devices := h.Devices()

	for _, command := range commands {
		for _, execution := range command.Execution {
			for _, handle := range command.Devices {
				d, err := device.GetDevice[google.DeviceInterface](devices, device.InternalName(handle.ID))
				if err != nil {
					logrus.WithError(err).Warn("Execute for unknown device")
					continue
				}

				errCode, online := d.Execute(ctx, execution, &resp.UpdatedState)

				if !online {
					resp.OfflineDevices = append(resp.OfflineDevices, handle.ID)
				} else if len(errCode) == 0 {
					resp.UpdatedDevices = append(resp.UpdatedDevices, handle.ID)
				} else {
					e := resp.FailedDevices[errCode]
					e.Devices = append(e.Devices, handle.ID)
					resp.FailedDevices[errCode] = e
				}
			}
		}
	}

	return resp, nil
}

// TurnAllOff switches off every OnOff device and returns the failures by
// device.
func (h *Home) TurnAllOff(ctx context.Context) map[device.InternalName]error {
	failed := make(map[device.InternalName]error)

	for name, d := range device.GetDevices[device.OnOff](h.Devices()) {
		if err := d.SetOnOff(ctx, false); err != nil {
			failed[name] = err
		}
	}

	return failed
}
