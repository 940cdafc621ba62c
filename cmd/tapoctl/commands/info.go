package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func infoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the device info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			info, err := c.GetDeviceInfo(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Nickname:\t%s\n", info.Name())
			fmt.Fprintf(w, "Model:\t%s\n", info.Model)
			fmt.Fprintf(w, "Device ID:\t%s\n", info.DeviceID)
			fmt.Fprintf(w, "Hardware ID:\t%s\n", info.HwID)
			fmt.Fprintf(w, "Firmware:\t%s\n", info.FwVer)
			fmt.Fprintf(w, "Hardware:\t%s\n", info.HwVer)
			fmt.Fprintf(w, "MAC:\t%s\n", info.MAC)
			fmt.Fprintf(w, "IP:\t%s\n", info.IP)
			fmt.Fprintf(w, "SSID:\t%s\n", info.Network())
			fmt.Fprintf(w, "RSSI:\t%d\n", info.RSSI)
			fmt.Fprintf(w, "On:\t%t\n", info.DeviceOn)
			fmt.Fprintf(w, "On time:\t%.0fs\n", info.OnTime)
			return w.Flush()
		},
	}
	return cmd
}
