package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plughub/api"
	"plughub/automation"
	"plughub/config"
	"plughub/device"
	"plughub/home"
	"plughub/integration/google"
	"plughub/integration/mqtt"
	"plughub/integration/ntfy"
	"plughub/integration/tapo"
	"plughub/presence"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/homegraph/v1"
	"google.golang.org/api/option"
)

func homegraphService(ctx context.Context, credentials config.Credentials) (*homegraph.Service, error) {
	if len(credentials) == 0 {
		logrus.Warn("No google credentials, state will not be reported")
		return nil, nil
	}

	return homegraph.NewService(ctx, option.WithCredentialsJSON(credentials))
}

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	cfg, err := config.Get("config.yml")
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MQTT
	client, err := mqtt.New(mqtt.Config{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to mqtt")
	}
	defer client.Disconnect(250)

	bridge := mqtt.NewBridge(client, cfg.MQTT.Prefix)

	// ntfy.sh
	notify := ntfy.New(cfg.Ntfy.Server, cfg.Ntfy.Topic)

	// Devices that we control and expose to google home
	h := home.New()

	hg, err := homegraphService(ctx, cfg.Google.Credentials)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create homegraph service")
	}
	service := google.NewService(h, cfg.Google.Username, cfg.Google.UserinfoURL, hg)

	reportState := func(name device.InternalName, on bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		states := map[string]google.DeviceState{
			name.String(): google.NewDeviceState(true).RecordOnOff(on),
		}
		if err := service.ReportState(ctx, states); err != nil {
			logrus.WithError(err).WithField("device", name).Warn("Failed to report state")
		}
	}

	var outlets []*tapo.Outlet
	var exposed []api.Outlet
	for name, ip := range cfg.Tapo.Outlets {
		o := tapo.NewOutlet(name, ip, cfg.Tapo.Email, cfg.Tapo.Password, cfg.Tapo.StateTTL,
			tapo.WithTransport(tapo.NewHTTPTransport(cfg.Tapo.Timeout)),
		)

		if err := bridge.Register(o); err != nil {
			logrus.WithError(err).WithField("device", name).Fatal("Failed to register with mqtt")
		}

		h.AddDevice(o)
		outlets = append(outlets, o)
		exposed = append(exposed, o)
	}

	local := api.New(exposed)
	defer local.Close()

	for _, o := range outlets {
		o.OnChange(bridge.Publish)
		o.OnChange(local.Publish)
		o.OnChange(reportState)
	}

	// Presence
	if _, err := presence.New(client); err != nil {
		logrus.WithError(err).Fatal("Failed to subscribe to presence")
	}

	if err := automation.RegisterAutomations(client, cfg.MQTT.Prefix, notify, h, cfg.Automation.AutoOff); err != nil {
		logrus.WithError(err).Fatal("Failed to register automations")
	}

	if err := service.RequestSync(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to request sync")
	}

	r := mux.NewRouter()
	r.HandleFunc("/assistant", service.FullfillmentHandler)
	local.Register(r)

	srv := http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()

		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Stop taking commands from mqtt before the server goes away
		for _, o := range outlets {
			if err := bridge.Unregister(o); err != nil {
				logrus.WithError(err).WithField("device", o.GetID()).Warn("Failed to unregister from mqtt")
			}
		}

		if err := srv.Shutdown(shutdown); err != nil {
			logrus.WithError(err).Warn("Failed to shut down")
		}
	}()

	logrus.Infof("Starting server on %s (PID: %d)", cfg.HTTP.Addr, os.Getpid())
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("Server failed")
	}
}
