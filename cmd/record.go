package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"practice/internal/app"
	"practice/internal/audio"
	"practice/internal/practice"
)

func newRecordCmd(o *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the input device to a WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc := o.cfg.Recording

			filename := output
			if filename == "" {
				filename = audio.DefaultFilename(rc.OutputDir, time.Now())
			}

			ctrl := app.NewController()
			defer ctrl.Release()
			src, err := ctrl.Open(ctx, "record", app.LiveOpener(audio.OptionsFromConfig(o.cfg.Audio)))
			if err != nil {
				return describe(err)
			}
			live, ok := src.(*audio.LiveSource)
			if !ok {
				return errors.New("recording needs a live input")
			}

			maxDur := time.Duration(rc.MaxDuration) * time.Second
			rec := audio.NewRecorder(live.SampleRate(), rc.BitDepth, maxDur)
			if err := rec.StartRecording(filename); err != nil {
				return err
			}
			live.SetTap(rec)
			fmt.Fprintf(cmd.ErrOrStderr(), "Recording to %s. Press Ctrl+C to stop.\n", filename)

			var limit <-chan time.Time
			if maxDur > 0 {
				timer := time.NewTimer(maxDur)
				defer timer.Stop()
				limit = timer.C
			}
			select {
			case <-ctx.Done():
			case <-limit:
			}

			live.SetTap(nil)
			if err := rec.StopRecording(); err != nil {
				return fmt.Errorf("finishing recording: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nRecording saved to: %s (%s)\n",
				rec.Path(), practice.FormatDuration(rec.Duration()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Output file name. Default is <output_dir>/recording-DD-MM-YYYY-HHMMSS.wav")
	return cmd
}
