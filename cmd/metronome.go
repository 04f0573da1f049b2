package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"practice/internal/audio"
	applog "practice/internal/log"
	"practice/internal/metronome"
	"practice/internal/practice"
)

func newMetronomeCmd(o *options) *cobra.Command {
	var bpm, beats int

	cmd := &cobra.Command{
		Use:   "metronome",
		Short: "Play a click track",
		Long: `Play a click track on the output device. While it runs, type a
command and press enter:

  t        tap tempo
  + / -    tempo up or down by 5 BPM
  <n>      set tempo to n BPM
  b <n>    set n beats per measure`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mc := o.cfg.Metronome
			if cmd.Flags().Changed("bpm") {
				mc.BPM = bpm
			}
			if cmd.Flags().Changed("beats") {
				mc.BeatsPerMeasure = beats
			}
			return o.runMetronome(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), mc.BPM, mc.BeatsPerMeasure)
		},
	}
	cmd.Flags().IntVar(&bpm, "bpm", 120, "Tempo in beats per minute (40-240)")
	cmd.Flags().IntVar(&beats, "beats", 4, "Beats per measure (1-16)")
	return cmd
}

func (o *options) runMetronome(ctx context.Context, in io.Reader, out io.Writer, bpm, beats int) error {
	ac := o.cfg.Audio
	clicks := audio.NewClickOutput(ac.OutputDevice, ac.SampleRate, ac.FramesPerBuffer)
	if err := clicks.Start(); err != nil {
		return err
	}
	defer clicks.Stop()

	m := metronome.New(clicks, clicks, bpm, beats)
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Stop()

	tracker, closeStore := o.newTracker()
	defer closeStore()
	if tracker != nil {
		if err := tracker.Start("metronome"); err != nil {
			applog.Warnf("not tracking session: %v", err)
		}
	}

	fmt.Fprintf(out, "%d BPM (%s), %d/4\n", m.Tempo(), metronome.Marking(m.Tempo()), m.TimeSignature())

	commands := make(chan string)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case commands <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			if tracker != nil {
				sess, err := tracker.End(context.Background())
				if err != nil {
					return err
				}
				if sess != nil {
					fmt.Fprintf(out, "\nPractised for %s\n", practice.FormatDuration(sess.Duration))
				}
			}
			return nil

		case b := <-m.Events():
			mark := "."
			if b.Accent {
				mark = "|"
			}
			fmt.Fprintf(out, "%s%d ", mark, b.Index+1)
			if b.Index == m.TimeSignature()-1 {
				fmt.Fprintln(out)
			}

		case line := <-commands:
			handleMetronomeCommand(m, line, out)
		}
	}
}

func handleMetronomeCommand(m *metronome.Metronome, line string, out io.Writer) {
	switch {
	case line == "t":
		if bpm, ok := m.Tap(time.Now()); ok {
			fmt.Fprintf(out, "\ntapped %d BPM (%s)\n", bpm, metronome.Marking(bpm))
		}
	case line == "+":
		bpm := m.SetTempo(m.Tempo() + 5)
		fmt.Fprintf(out, "\n%d BPM (%s)\n", bpm, metronome.Marking(bpm))
	case line == "-":
		bpm := m.SetTempo(m.Tempo() - 5)
		fmt.Fprintf(out, "\n%d BPM (%s)\n", bpm, metronome.Marking(bpm))
	case strings.HasPrefix(line, "b "):
		n, err := strconv.Atoi(strings.TrimSpace(line[2:]))
		if err != nil {
			fmt.Fprintf(out, "\nnot a beat count: %q\n", line[2:])
			return
		}
		fmt.Fprintf(out, "\n%d/4\n", m.SetTimeSignature(n))
	case line == "":
	default:
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(out, "\nunknown command %q\n", line)
			return
		}
		bpm := m.SetTempo(n)
		fmt.Fprintf(out, "\n%d BPM (%s)\n", bpm, metronome.Marking(bpm))
	}
}
