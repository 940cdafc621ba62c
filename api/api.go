package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"plughub/device"
	"plughub/integration/tapo"

	"github.com/gorilla/mux"
	"github.com/r3labs/sse/v2"
	"github.com/sirupsen/logrus"
)

const Stream = "outlets"

// Outlet is what the API needs from a configured plug.
type Outlet interface {
	device.OnOff
	Info(ctx context.Context) (*tapo.DeviceInfo, error)
	Cached() (on bool, ok bool)
	Online() bool
}

type API struct {
	outlets map[device.InternalName]Outlet
	events  *sse.Server
}

func New(outlets []Outlet) *API {
	a := &API{
		outlets: make(map[device.InternalName]Outlet),
		events:  sse.New(),
	}
	a.events.CreateStream(Stream)

	for _, o := range outlets {
		a.outlets[o.GetID()] = o
	}

	return a
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/outlets", a.list).Methods(http.MethodGet)
	r.HandleFunc("/outlets/{room}/{name}", a.info).Methods(http.MethodGet)
	r.HandleFunc("/outlets/{room}/{name}", a.set).Methods(http.MethodPut)
	r.Handle("/events", a.events).Methods(http.MethodGet)
}

type event struct {
	ID string `json:"id"`
	On bool   `json:"on"`
}

// Publish sends a state change to everyone listening on the event stream.
// It matches tapo.ChangeFunc.
func (a *API) Publish(name device.InternalName, on bool) {
	data, err := json.Marshal(event{ID: name.String(), On: on})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal event")
		return
	}

	a.events.Publish(Stream, &sse.Event{Data: data})
}

func (a *API) Close() {
	a.events.Close()
}

type outletStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Room   string `json:"room,omitempty"`
	Online bool   `json:"online"`
	// Only set while a state is cached
	On *bool `json:"on,omitempty"`
}

type outletInfo struct {
	ID       string  `json:"id"`
	DeviceID string  `json:"device_id"`
	Nickname string  `json:"nickname"`
	Model    string  `json:"model"`
	HwID     string  `json:"hw_id"`
	FwVer    string  `json:"fw_ver"`
	HwVer    string  `json:"hw_ver"`
	MAC      string  `json:"mac"`
	IP       string  `json:"ip"`
	SSID     string  `json:"ssid"`
	RSSI     int     `json:"rssi"`
	On       bool    `json:"on"`
	OnTime   float64 `json:"on_time"`
}

type setRequest struct {
	On *bool `json:"on"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    *int   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var protocolErr *tapo.ProtocolError
	var transportErr *tapo.TransportError

	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &protocolErr):
		status = http.StatusBadGateway
		resp.Code = &protocolErr.Code
		resp.Message = protocolErr.Message
	case errors.As(err, &transportErr):
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, resp)
}

func (a *API) outlet(w http.ResponseWriter, r *http.Request) (Outlet, bool) {
	vars := mux.Vars(r)
	name := device.InternalName(vars["room"] + "/" + vars["name"])

	o, ok := a.outlets[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown outlet " + name.String()})
	}

	return o, ok
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	statuses := make([]outletStatus, 0, len(a.outlets))
	for name, o := range a.outlets {
		status := outletStatus{
			ID:     name.String(),
			Name:   name.Name(),
			Room:   name.Room(),
			Online: o.Online(),
		}
		if on, ok := o.Cached(); ok {
			status.On = &on
		}

		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ID < statuses[j].ID
	})

	writeJSON(w, http.StatusOK, statuses)
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	o, ok := a.outlet(w, r)
	if !ok {
		return
	}

	info, err := o.Info(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outletInfo{
		ID:       o.GetID().String(),
		DeviceID: info.DeviceID,
		Nickname: info.Name(),
		Model:    info.Model,
		HwID:     info.HwID,
		FwVer:    info.FwVer,
		HwVer:    info.HwVer,
		MAC:      info.MAC,
		IP:       info.IP,
		SSID:     info.Network(),
		RSSI:     info.RSSI,
		On:       info.DeviceOn,
		OnTime:   info.OnTime,
	})
}

func (a *API) set(w http.ResponseWriter, r *http.Request) {
	o, ok := a.outlet(w, r)
	if !ok {
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.On == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `expected {"on": bool}`})
		return
	}

	if err := o.SetOnOff(r.Context(), *req.On); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, event{ID: o.GetID().String(), On: *req.On})
}
