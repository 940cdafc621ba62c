package commands

import (
	"context"
	"time"

	"plughub/integration/tapo"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	ip       string
	email    string
	password string
	timeout  time.Duration
	verbose  bool
)

type environment struct {
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
}

func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "tapoctl",
		Short:        "Control a TP-Link Tapo P100 plug",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			var env environment
			if err := envconfig.Process("tapo", &env); err != nil {
				return err
			}
			if email == "" {
				email = env.Email
			}
			if password == "" {
				password = env.Password
			}

			return nil
		},
	}

	root.PersistentFlags().StringVar(&ip, "ip", "", "address of the plug")
	root.PersistentFlags().StringVar(&email, "email", "", "tapo account email (default $TAPO_EMAIL)")
	root.PersistentFlags().StringVar(&password, "password", "", "tapo account password (default $TAPO_PASSWORD)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", tapo.DefaultTimeout, "timeout per request")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log the protocol exchange")

	root.AddCommand(powerCmd("on", true), powerCmd("off", false), infoCmd())
	return root
}

// connect opens a logged in session. Only single requests are bounded, by
// --timeout.
func connect(ctx context.Context) (*tapo.Client, error) {
	c, err := tapo.NewClient(ip, email, password, tapo.WithTransport(tapo.NewHTTPTransport(timeout)))
	if err != nil {
		return nil, err
	}

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	return c, nil
}
