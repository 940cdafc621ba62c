package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/homegraph/v1"
)

type ExecuteResponse struct {
	UpdatedState   DeviceState
	UpdatedDevices []string
	OfflineDevices []string
	// The key is the errorCode that is associated with the devices
	FailedDevices map[string]struct {
		Devices []string
	}
}

type Provider interface {
	Sync(context.Context, string) ([]*Device, error)
	Query(context.Context, string, []DeviceHandle) (map[string]DeviceState, error)
	Execute(context.Context, string, []Command) (*ExecuteResponse, error)
}

type Service struct {
	provider Provider
	userID   string

	// Optional, without it requests are not authenticated
	userinfoURL string
	client      *http.Client

	// Optional, without it nothing is pushed to Google
	deviceService *homegraph.DevicesService
}

func NewService(provider Provider, userID string, userinfoURL string, service *homegraph.Service) *Service {
	s := &Service{
		provider:    provider,
		userID:      userID,
		userinfoURL: userinfoURL,
		client:      &http.Client{},
	}

	if service != nil {
		s.deviceService = homegraph.NewDevicesService(service)
	}

	return s
}

func (s *Service) RequestSync(ctx context.Context) error {
	if s.deviceService == nil {
		return nil
	}

	call := s.deviceService.RequestSync(&homegraph.RequestSyncDevicesRequest{
		AgentUserId: s.userID,
		Async:       true,
	})

	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return err
	}

	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		return fmt.Errorf("sync failed: %d", resp.ServerResponse.HTTPStatusCode)
	}

	return nil
}

func (s *Service) ReportState(ctx context.Context, states map[string]DeviceState) error {
	if s.deviceService == nil {
		return nil
	}

	j, err := json.Marshal(states)
	if err != nil {
		return err
	}

	call := s.deviceService.ReportStateAndNotification(&homegraph.ReportStateAndNotificationRequest{
		AgentUserId: s.userID,
		EventId:     uuid.New().String(),
		RequestId:   uuid.New().String(),
		Payload: &homegraph.StateAndNotificationPayload{
			Devices: &homegraph.ReportStateAndNotificationDevice{
				States: j,
			},
		},
	})

	call.Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return err
	}

	if resp.ServerResponse.HTTPStatusCode != http.StatusOK {
		return fmt.Errorf("report failed: %d", resp.ServerResponse.HTTPStatusCode)
	}

	logrus.WithField("devices", len(states)).Debug("Reported state")

	return nil
}
