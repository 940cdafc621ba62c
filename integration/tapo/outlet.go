package tapo

import (
	"context"
	"errors"
	"sync"
	"time"

	"plughub/device"
	"plughub/integration/google"

	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
)

// ChangeFunc is called after an outlet's power state is known to have
// changed.
type ChangeFunc func(name device.InternalName, on bool)

// Outlet exposes one configured plug as a device. It owns at most one
// Client at a time. Any failure discards the Client so the next call
// starts a new session; a call itself is never retried.
type Outlet struct {
	name       device.InternalName
	newSession func() (*Client, error)
	log        logrus.FieldLogger

	mu        sync.Mutex
	notifyMu  sync.Mutex
	client    *Client
	online    bool
	state     *ttlcache.Cache[device.InternalName, bool]
	listeners []ChangeFunc
}

func NewOutlet(name device.InternalName, ip, email, password string, ttl time.Duration, opts ...Option) *Outlet {
	return newOutlet(name, ttl, func() (*Client, error) {
		return NewClient(ip, email, password, opts...)
	})
}

func newOutlet(name device.InternalName, ttl time.Duration, newSession func() (*Client, error)) *Outlet {
	return &Outlet{
		name:       name,
		newSession: newSession,
		log:        logrus.WithField("outlet", name),
		state: ttlcache.New(
			ttlcache.WithTTL[device.InternalName, bool](ttl),
			ttlcache.WithDisableTouchOnHit[device.InternalName, bool](),
		),
	}
}

func (o *Outlet) OnChange(f ChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.listeners = append(o.listeners, f)
}

func (o *Outlet) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.online
}

// Cached returns the last known power state, if it has not expired.
func (o *Outlet) Cached() (on bool, ok bool) {
	if item := o.state.Get(o.name); item != nil {
		return item.Value(), true
	}

	return false, false
}

func (o *Outlet) session(ctx context.Context) (*Client, error) {
	if o.client != nil {
		return o.client, nil
	}

	c, err := o.newSession()
	if err != nil {
		return nil, err
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	o.client = c
	return c, nil
}

// do runs f on the session and caches the power state f reports before mu
// is released. Listeners run under notifyMu in the order the calls
// completed and must not call back into the Outlet.
func (o *Outlet) do(ctx context.Context, f func(*Client) (bool, error)) error {
	o.mu.Lock()

	c, err := o.session(ctx)
	var on bool
	if err == nil {
		on, err = f(c)
	}

	if err != nil {
		o.client = nil
		o.online = false
		o.state.Delete(o.name)
		o.mu.Unlock()
		return err
	}

	o.online = true

	previous, known := o.Cached()
	o.state.Set(o.name, on, ttlcache.DefaultTTL)

	var listeners []ChangeFunc
	if !known || previous != on {
		listeners = append(listeners, o.listeners...)
	}

	o.notifyMu.Lock()
	o.mu.Unlock()
	defer o.notifyMu.Unlock()

	for _, l := range listeners {
		l(o.name, on)
	}

	return nil
}

// Info fetches the device info over the network.
func (o *Outlet) Info(ctx context.Context) (*DeviceInfo, error) {
	var info *DeviceInfo
	err := o.do(ctx, func(c *Client) (bool, error) {
		var err error
		info, err = c.GetDeviceInfo(ctx)
		if err != nil {
			return false, err
		}
		return info.DeviceOn, nil
	})
	if err != nil {
		o.log.WithError(err).Warn("Failed to get device info")
		return nil, err
	}

	return info, nil
}

// device.Basic
var _ device.Basic = (*Outlet)(nil)

func (o *Outlet) GetID() device.InternalName {
	return o.name
}

// device.OnOff
var _ device.OnOff = (*Outlet)(nil)

func (o *Outlet) SetOnOff(ctx context.Context, on bool) error {
	err := o.do(ctx, func(c *Client) (bool, error) {
		return on, c.SetPowerState(ctx, on)
	})
	if err != nil {
		o.log.WithError(err).WithField("on", on).Warn("Failed to set power state")
		return err
	}

	return nil
}

func (o *Outlet) GetOnOff(ctx context.Context) (bool, error) {
	if on, ok := o.Cached(); ok {
		return on, nil
	}

	info, err := o.Info(ctx)
	if err != nil {
		return false, err
	}

	return info.DeviceOn, nil
}

// google.DeviceInterface
var _ google.DeviceInterface = (*Outlet)(nil)

func (o *Outlet) Sync(ctx context.Context) *google.Device {
	d := google.NewDevice(o.GetID().String(), google.TypeOutlet)
	d.AddOnOffTrait(false, false)

	d.Name = google.DeviceName{
		DefaultNames: []string{
			"Smart Plug",
		},
		Name: o.GetID().Name(),
	}
	d.WillReportState = true
	if room := o.GetID().Room(); room != "" {
		d.RoomHint = room
	}

	d.DeviceInfo = google.DeviceInfo{Manufacturer: "TP-Link"}
	if info, err := o.Info(ctx); err == nil {
		d.DeviceInfo.Model = info.Model
		d.DeviceInfo.HwVersion = info.HwVer
		d.DeviceInfo.SwVersion = info.FwVer
		if nickname := info.Name(); nickname != "" {
			d.Name.Nicknames = []string{nickname}
		}
	}

	return d
}

func (o *Outlet) Query(ctx context.Context) google.DeviceState {
	on, err := o.GetOnOff(ctx)
	if err != nil {
		state := google.NewDeviceState(false)
		state.Status = google.StatusOffline
		return state
	}

	state := google.NewDeviceState(true).RecordOnOff(on)
	state.Status = google.StatusSuccess

	return state
}

func (o *Outlet) Execute(ctx context.Context, execution google.Execution, updatedState *google.DeviceState) (string, bool) {
	switch execution.Name {
	case google.CommandOnOff:
		err := o.SetOnOff(ctx, execution.OnOff.On)

		var transportErr *TransportError
		switch {
		case err == nil:
			updatedState.RecordOnOff(execution.OnOff.On)
			return "", true
		case errors.As(err, &transportErr):
			return "", false
		default:
			return google.ErrCodeTransientError, true
		}

	default:
		o.log.Warnf("Command (%s) not supported", execution.Name)
		return google.ErrCodeActionNotAvailable, true
	}
}
