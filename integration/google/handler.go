package google

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// https://developers.google.com/assistant/smarthome/reference/intent/sync
type syncResponse struct {
	RequestID string `json:"requestId"`
	Payload   struct {
		UserID      string    `json:"agentUserId"`
		ErrorCode   string    `json:"errorCode,omitempty"`
		DebugString string    `json:"debugString,omitempty"`
		Devices     []*Device `json:"devices"`
	} `json:"payload"`
}

// https://developers.google.com/assistant/smarthome/reference/intent/query
type queryResponse struct {
	RequestID string `json:"requestId"`
	Payload   struct {
		ErrorCode   string                 `json:"errorCode,omitempty"`
		DebugString string                 `json:"debugString,omitempty"`
		Devices     map[string]DeviceState `json:"devices"`
	} `json:"payload"`
}

type executeRespPayload struct {
	IDs       []string     `json:"ids"`
	Status    Status       `json:"status"`
	ErrorCode string       `json:"errorCode,omitempty"`
	States    *DeviceState `json:"states,omitempty"`
}

type executeResponse struct {
	RequestID string `json:"requestId"`
	Payload   struct {
		ErrorCode   string               `json:"errorCode,omitempty"`
		DebugString string               `json:"debugString,omitempty"`
		Commands    []executeRespPayload `json:"commands,omitempty"`
	} `json:"payload"`
}

func (s *Service) authorized(r *http.Request) int {
	if s.userinfoURL == "" {
		return http.StatusOK
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.userinfoURL, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to make request to login server")
		return http.StatusInternalServerError
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logrus.WithError(err).Error("Login server unreachable")
		return http.StatusBadGateway
	}
	resp.Body.Close()

	return resp.StatusCode
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Error serializing")
	}
}

func (s *Service) FullfillmentHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if status := s.authorized(r); status != http.StatusOK {
		logrus.WithField("status", status).Warn("Not logged in")
		w.WriteHeader(status)
		return
	}

	fullfimentReq := &FullfillmentRequest{}
	if err := json.NewDecoder(r.Body).Decode(fullfimentReq); err != nil {
		http.Error(w, "JSON Deserialization failed", http.StatusBadRequest)
		return
	}

	if len(fullfimentReq.Inputs) != 1 {
		http.Error(w, "Unsupported number of inputs", http.StatusBadRequest)
		return
	}

	input := fullfimentReq.Inputs[0]
	log := logrus.WithFields(logrus.Fields{"request": fullfimentReq.RequestID, "intent": input.Intent})

	switch input.Intent {
	case IntentSync:
		devices, err := s.provider.Sync(r.Context(), s.userID)
		if err != nil {
			log.WithError(err).Error("Failed to sync")
			http.Error(w, "Failed to sync", http.StatusServiceUnavailable)
			return
		}

		syncResp := &syncResponse{RequestID: fullfimentReq.RequestID}
		syncResp.Payload.UserID = s.userID
		syncResp.Payload.Devices = devices

		writeJSON(w, syncResp)

	case IntentQuery:
		states, err := s.provider.Query(r.Context(), s.userID, input.Query.Devices)
		if err != nil {
			log.WithError(err).Error("Failed to query")
			http.Error(w, "Failed to query", http.StatusServiceUnavailable)
			return
		}

		queryResp := &queryResponse{RequestID: fullfimentReq.RequestID}
		queryResp.Payload.Devices = states

		writeJSON(w, queryResp)

	case IntentExecute:
		response, err := s.provider.Execute(r.Context(), s.userID, input.Execute.Commands)
		if err != nil {
			log.WithError(err).Error("Failed to execute")
			http.Error(w, "Failed to execute", http.StatusServiceUnavailable)
			return
		}

		executeResp := &executeResponse{RequestID: fullfimentReq.RequestID}

		if len(response.UpdatedDevices) > 0 {
			state := response.UpdatedState
			executeResp.Payload.Commands = append(executeResp.Payload.Commands, executeRespPayload{
				IDs:    response.UpdatedDevices,
				Status: StatusSuccess,
				States: &state,
			})
		}

		if len(response.OfflineDevices) > 0 {
			executeResp.Payload.Commands = append(executeResp.Payload.Commands, executeRespPayload{
				IDs:       response.OfflineDevices,
				Status:    StatusOffline,
				ErrorCode: ErrCodeDeviceOffline,
			})
		}

		for errCode, details := range response.FailedDevices {
			executeResp.Payload.Commands = append(executeResp.Payload.Commands, executeRespPayload{
				IDs:       details.Devices,
				Status:    StatusError,
				ErrorCode: errCode,
			})
		}

		writeJSON(w, executeResp)

	case IntentDisconnect:
		log.Info("Account unlinked")
		writeJSON(w, struct{}{})

	default:
		log.Warn("Intent is not implemented")
		http.Error(w, "Not implemented for now", http.StatusBadRequest)
	}
}
