package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"practice/internal/app"
	"practice/internal/audio"
	"practice/internal/config"
	applog "practice/internal/log"
	"practice/internal/practice"
	"practice/internal/transport"
	"practice/internal/transport/udp"
	"practice/pkg/build"
)

// options holds flag values shared by every subcommand. Flags override the
// loaded configuration only when set explicitly.
type options struct {
	configPath string
	verbose    bool
	device     int
	file       string
	transport  string

	cfg *config.Config
}

// Execute builds the command tree and runs it until ctx is cancelled or the
// chosen command finishes.
func Execute(ctx context.Context, args []string) error {
	root := newRootCmd(&options{})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(o *options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "",
		"Path to a YAML config file (default ./config.yaml when present)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false,
		"Show debug output")
	flags.IntVarP(&o.device, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices.")
	flags.StringVarP(&o.file, "file", "f", "",
		"Analyse a WAV file instead of the microphone")
	flags.StringVarP(&o.transport, "transport", "t", "",
		"Where results go: log, websocket or udp")

	rootCmd.AddCommand(
		newTunerCmd(o),
		newChordsCmd(o),
		newBPMCmd(o),
		newSpectrumCmd(o),
		newMetronomeCmd(o),
		newRecordCmd(o),
		newDevicesCmd(o),
		newStatsCmd(o),
	)
	return rootCmd
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.device
	}
	if flags.Changed("transport") {
		cfg.Transport.Kind = o.transport
	}
	if flags.Changed("transport") || flags.Changed("device") {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
	}

	level := applog.LevelInfo
	if l, ok := applog.ParseLevel(cfg.LogLevel); ok {
		level = l
	}
	if o.verbose || cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	o.cfg = cfg
	return nil
}

// opener picks the microphone or the WAV file given with --file.
func (o *options) opener() app.OpenFunc {
	opts := audio.OptionsFromConfig(o.cfg.Audio)
	if o.file != "" {
		return app.FileOpener(o.file, opts)
	}
	return app.LiveOpener(opts)
}

// newTransport builds the configured result transport. For udp, spectrum
// bars also stream as binary frames when a spectrum tool is given.
func (o *options) newTransport(spectrum *app.Spectrum) (transport.Transport, error) {
	tc := o.cfg.Transport
	switch tc.Kind {
	case config.TransportWebSocket:
		wst := transport.NewWebSocketTransport(tc.WebSocketAddr, tc.BroadcastRate)
		wst.ListenAndServe()
		return wst, nil

	case config.TransportUDP:
		sender, err := udp.NewUDPSender(tc.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		if spectrum == nil {
			return sender, nil
		}
		pub, err := udp.NewPublisher(tc.UDPSendInterval, sender, app.BarFrames(spectrum))
		if err != nil {
			_ = sender.Close()
			return nil, err
		}
		pub.Start()
		// The publisher stops before the socket closes.
		return transport.Multi{closerOnly{pub}, sender}, nil

	default:
		return transport.NewLoggingTransport(), nil
	}
}

// closerOnly joins a Multi for shutdown without receiving messages.
type closerOnly struct{ c interface{ Close() error } }

func (c closerOnly) Send(any) error { return nil }
func (c closerOnly) Close() error   { return c.c.Close() }

// newTracker opens the practice store when tracking is enabled. The
// returned close function is always safe to call.
func (o *options) newTracker() (*practice.Tracker, func()) {
	if !o.cfg.Practice.Enabled {
		return nil, func() {}
	}
	store := practice.NewStore(o.cfg.Practice.DBPath)
	return practice.NewTracker(store), func() {
		if err := store.Close(); err != nil {
			applog.Warnf("closing practice store: %v", err)
		}
	}
}

// runTools opens the input and polls it with tools until ctx is cancelled
// or a file source finishes playing.
func (o *options) runTools(ctx context.Context, owner string, spectrum *app.Spectrum, tools ...app.Tool) error {
	ctrl := app.NewController()
	defer func() {
		if err := ctrl.Release(); err != nil {
			applog.Warnf("releasing input: %v", err)
		}
	}()

	src, err := ctrl.Open(ctx, owner, o.opener())
	if err != nil {
		return describe(err)
	}

	out, err := o.newTransport(spectrum)
	if err != nil {
		return fmt.Errorf("creating transport: %w", err)
	}
	defer out.Close()

	tracker, closeStore := o.newTracker()
	defer closeStore()

	runner := app.NewRunner(ctrl, out, tools...)
	if tracker != nil {
		runner.WithTracker(tracker)
	}
	if err := runner.Start(ctx, o.cfg.Analysis.PollInterval); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s running. Press Ctrl+C to stop.\n", owner)

	waitForEnd(ctx, src)

	sess, err := runner.Stop(context.Background())
	if err != nil {
		return err
	}
	if sess != nil {
		fmt.Fprintf(os.Stderr, "\nPractised %s for %s\n", sess.Tool, practice.FormatDuration(sess.Duration))
	}
	return nil
}

// waitForEnd blocks until ctx is done or a played file has ended.
func waitForEnd(ctx context.Context, src audio.AmplitudeSource) {
	pb, ok := src.(*audio.PlaybackSource)
	if !ok {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pb.Ended() {
				return
			}
		}
	}
}

// describe turns an acquisition failure into a message for the user while
// keeping the cause wrapped.
func describe(err error) error {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return fmt.Errorf("microphone access denied, allow access and try again: %w", err)
	case errors.Is(err, audio.ErrDeviceNotFound):
		return fmt.Errorf("no microphone found, connect one or pick another with --device: %w", err)
	case errors.Is(err, audio.ErrInitialization):
		return fmt.Errorf("could not start audio capture: %w", err)
	default:
		return err
	}
}
