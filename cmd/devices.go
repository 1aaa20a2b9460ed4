//go:build linux

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/camwall/pkg/linuxav/v4l2"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var showFormats bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List V4L2 capture devices",
		Long: `Lists the video capture nodes on this system with their stable IDs. ` +
			`Stable IDs can be used in place of /dev/videoN in capture.device_paths.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			devices, err := v4l2.FindDevices()
			if err != nil {
				return err
			}
			return printDevices(c.OutOrStdout(), devices, showFormats, v4l2.GetFormats)
		},
	}
	cmd.Flags().BoolVarP(&showFormats, "formats", "f", false, "Also list the pixel formats of each device")
	return cmd
}

func printDevices(out io.Writer, devices []v4l2.DeviceInfo, showFormats bool, formats func(string) ([]v4l2.FormatInfo, error)) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(out, "no capture devices found")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNAME\tMPLANE\tID")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", d.DevicePath, d.DeviceName, d.Multiplanar(), d.DeviceID)
		if !showFormats {
			continue
		}
		list, err := formats(d.DevicePath)
		if err != nil {
			fmt.Fprintf(tw, "\t  formats unavailable: %v\t\t\n", err)
			continue
		}
		for _, f := range list {
			note := ""
			if f.Emulated {
				note = " (emulated)"
			}
			fmt.Fprintf(tw, "\t  %s %s%s\t\t\n", f.PixelFormat, f.FormatName, note)
		}
	}
	return tw.Flush()
}
