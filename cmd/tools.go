package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"practice/internal/analysis"
	"practice/internal/app"
)

func newTunerCmd(o *options) *cobra.Command {
	var instrument string

	cmd := &cobra.Command{
		Use:   "tuner",
		Short: "Show the note being played and how far it is from pitch",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := o.cfg.Analysis.Instrument
			if cmd.Flags().Changed("instrument") {
				name = instrument
			}
			inst, err := app.LookupInstrument(name)
			if err != nil {
				return err
			}
			refs := make([]string, len(inst.Notes))
			for i, n := range inst.Notes {
				refs[i] = n.String()
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Tuning %s: %s\n", inst.Name, strings.Join(refs, ", "))

			tuner := app.NewTuner(inst, o.cfg.Analysis.InTuneCents)
			return o.runTools(cmd.Context(), tuner.Name(), nil, tuner)
		},
	}
	cmd.Flags().StringVarP(&instrument, "instrument", "i", "",
		"Reference notes to tune against: "+strings.Join(app.InstrumentNames(), ", "))
	return cmd
}

func newChordsCmd(o *options) *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "chords",
		Short: "Recognise the chord being played",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := o.cfg.Analysis.ChordThreshold
			if cmd.Flags().Changed("threshold") {
				t = threshold
			}
			chords := app.NewChords(t)
			return o.runTools(cmd.Context(), chords.Name(), nil, chords)
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", analysis.DefaultChordThresh,
		"Minimum spectral peak (0-255) counted as a note")
	return cmd
}

func newBPMCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bpm",
		Short: "Detect beats and estimate the tempo",
		RunE: func(cmd *cobra.Command, args []string) error {
			bpm := app.NewBPM(nil)
			return o.runTools(cmd.Context(), bpm.Name(), nil, bpm)
		},
	}
}

func newSpectrumCmd(o *options) *cobra.Command {
	var bars int

	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "Stream spectrum bars, band levels and the dominant frequency",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := o.cfg.Analysis
			if cmd.Flags().Changed("bars") {
				a.BarCount = bars
			}
			spectrum := app.NewSpectrum(a.BarCount, a.SoundThreshold, a.Sensitivity)
			return o.runTools(cmd.Context(), spectrum.Name(), spectrum, spectrum)
		},
	}
	cmd.Flags().IntVar(&bars, "bars", analysis.DefaultBars, "Number of spectrum bars")
	return cmd
}
