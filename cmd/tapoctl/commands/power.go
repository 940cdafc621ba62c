package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func powerCmd(use string, on bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Switch the plug %s", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			if err := c.SetPowerState(cmd.Context(), on); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.Host(), use)
			return nil
		},
	}
	return cmd
}
