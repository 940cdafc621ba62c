package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"plughub/device"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr" envconfig:"HTTP_ADDR"`
	} `yaml:"http"`

	Tapo struct {
		Email    string        `yaml:"email" envconfig:"TAPO_EMAIL"`
		Password string        `yaml:"password" envconfig:"TAPO_PASSWORD"`
		Timeout  time.Duration `yaml:"timeout" envconfig:"TAPO_TIMEOUT"`
		// How long a QUERY may be answered from the last known state
		StateTTL time.Duration                  `yaml:"state_ttl" envconfig:"TAPO_STATE_TTL"`
		Outlets  map[device.InternalName]string `yaml:"outlets"`
	} `yaml:"tapo"`

	MQTT struct {
		Host     string `yaml:"host" envconfig:"MQTT_HOST"`
		Port     int    `yaml:"port" envconfig:"MQTT_PORT"`
		Username string `yaml:"username" envconfig:"MQTT_USERNAME"`
		Password string `yaml:"password" envconfig:"MQTT_PASSWORD"`
		ClientID string `yaml:"client_id" envconfig:"MQTT_CLIENT_ID"`
		Prefix   string `yaml:"prefix" envconfig:"MQTT_PREFIX"`
	} `yaml:"mqtt"`

	Ntfy struct {
		Server string `yaml:"server" envconfig:"NTFY_SERVER"`
		Topic  string `yaml:"topic" envconfig:"NTFY_TOPIC"`
	} `yaml:"ntfy"`

	Google struct {
		Username    string      `yaml:"username" envconfig:"GOOGLE_USERNAME"`
		UserinfoURL string      `yaml:"userinfo_url" envconfig:"GOOGLE_USERINFO_URL"`
		Credentials Credentials `yaml:"credentials" envconfig:"GOOGLE_CREDENTIALS"`
	} `yaml:"google"`

	Automation struct {
		AutoOff map[device.InternalName]time.Duration `yaml:"auto_off"`
	} `yaml:"automation"`
}

// Credentials is a base64 encoded service account json.
type Credentials []byte

// envconfig.Decoder
func (c *Credentials) Decode(value string) error {
	b, err := base64.StdEncoding.DecodeString(value)
	*c = b

	return err
}

// yaml.Unmarshaler
func (c *Credentials) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	return c.Decode(s)
}

func (c *Config) defaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8090"
	}
	if c.Tapo.Timeout == 0 {
		c.Tapo.Timeout = 10 * time.Second
	}
	if c.Tapo.StateTTL == 0 {
		c.Tapo.StateTTL = 30 * time.Second
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "plughub"
	}
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "tapo"
	}
}

func (c *Config) Validate() error {
	if c.Tapo.Email == "" || c.Tapo.Password == "" {
		return errors.New("tapo email and password are required")
	}

	for name, ip := range c.Tapo.Outlets {
		if ip == "" {
			return fmt.Errorf("outlet '%s' has no ip", name)
		}
	}

	for name, after := range c.Automation.AutoOff {
		if _, ok := c.Tapo.Outlets[name]; !ok {
			return fmt.Errorf("auto off for unknown outlet '%s'", name)
		}
		if after <= 0 {
			return fmt.Errorf("auto off for '%s' must be positive", name)
		}
	}

	return nil
}

// Get loads the yaml file at path and then applies the environment, which
// can be used to either override the config or pass in secrets. A missing
// file is fine as long as the environment provides what is needed.
func Get(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("Config file %s not found, using environment only", path)
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment config: %w", err)
	}

	cfg.defaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
