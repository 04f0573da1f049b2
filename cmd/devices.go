package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"practice/internal/audio"
	"practice/internal/tui"
)

func newDevicesCmd(o *options) *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !pick {
				return audio.ListDevices(cmd.OutOrStdout())
			}
			sel, err := tui.PickInputDevice()
			if errors.Is(err, tui.ErrCancelled) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Selected [%d] %s at %.0f Hz\n\n", sel.DeviceID, sel.Name, sel.SampleRate)
			fmt.Fprintf(cmd.OutOrStdout(), "Add to config.yaml:\n\naudio:\n  input_device: %d\n  sample_rate: %.0f\n",
				sel.DeviceID, sel.SampleRate)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&pick, "pick", "p", false, "Choose an input device interactively")
	return cmd
}
