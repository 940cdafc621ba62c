package mqtt

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
}
