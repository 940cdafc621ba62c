package google

type Status string

const (
	StatusSuccess   Status = "SUCCESS"
	StatusOffline   Status = "OFFLINE"
	StatusException Status = "EXCEPTIONS"
	StatusError     Status = "ERROR"
)

// https://developers.google.com/assistant/smarthome/reference/errors-exceptions
const (
	ErrCodeDeviceOffline      = "deviceOffline"
	ErrCodeTransientError     = "transientError"
	ErrCodeActionNotAvailable = "actionNotAvailable"
)
