package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fiddlekit/fiddletune/internal/audio"
	"github.com/fiddlekit/fiddletune/internal/tuner"
	"github.com/fiddlekit/fiddletune/internal/tuning"
	"github.com/fiddlekit/fiddletune/internal/ui"
)

const (
	// Audio settings
	defaultBufferSize = 4096
	defaultSampleRate = 44100

	// Listening auto-stops after this long without a manual stop.
	defaultMaxListen = 30 * time.Second

	defaultToneDuration = 2 * time.Second
)

var (
	flagString       string
	flagSampleRate   int
	flagBufferSize   int
	flagMaxListen    time.Duration
	flagSynth        float64
	flagLogPath      string
	flagToneDuration time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "fiddletune",
	Short: "Violin tuner for the terminal",
	Long: "FiddleTune listens to the microphone, estimates the pitch of the\n" +
		"played note and shows how far it is from the selected string\n" +
		"(G, D, A or E) in cents.",
	SilenceUsage: true,
	RunE:         runTuner,
}

var playCmd = &cobra.Command{
	Use:   "play [string]",
	Short: "Play the reference tone for a string",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagString, "string", "A", "string to tune (G, D, A or E)")
	rootCmd.PersistentFlags().IntVar(&flagSampleRate, "sample-rate", defaultSampleRate, "capture sample rate in Hz")
	rootCmd.PersistentFlags().DurationVar(&flagToneDuration, "duration", defaultToneDuration, "reference tone length")
	rootCmd.Flags().IntVar(&flagBufferSize, "buffer-size", defaultBufferSize, "samples per capture block")
	rootCmd.Flags().DurationVar(&flagMaxListen, "max-listen", defaultMaxListen, "auto-stop after this much listening (0 to disable)")
	rootCmd.Flags().Float64Var(&flagSynth, "synth", 0, "use a synthetic sine source at this frequency instead of the microphone")
	rootCmd.Flags().StringVar(&flagLogPath, "log", "", "write a debug log to this file")
	rootCmd.AddCommand(playCmd)
}

func newLogger() (*zap.Logger, error) {
	if flagLogPath == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{flagLogPath}
	cfg.ErrorOutputPaths = []string{flagLogPath}
	return cfg.Build()
}

func selectedString(name string) (tuning.String, error) {
	s, ok := tuning.StringByName(strings.ToUpper(name))
	if !ok {
		return tuning.String{}, fmt.Errorf("unknown string %q (want G, D, A or E)", name)
	}
	return s, nil
}

func runTuner(cmd *cobra.Command, args []string) error {
	str, err := selectedString(flagString)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Sync()

	var capturer audio.Capturer
	if flagSynth > 0 {
		capturer = audio.NewSineCapturer(flagSynth, flagBufferSize, flagSampleRate)
	} else {
		capturer = audio.NewPortAudioCapturer(flagBufferSize, flagSampleRate)
	}

	engine := tuner.New(capturer, tuner.Config{
		String:    str,
		MaxListen: flagMaxListen,
		Logger:    logger,
	})
	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Stop()

	playTone := func(s tuning.String) error {
		return audio.PlayTone(s.Frequency, flagToneDuration, flagSampleRate)
	}

	p := tea.NewProgram(ui.NewModel(engine, playTone), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	name := flagString
	if len(args) == 1 {
		name = args[0]
	}
	str, err := selectedString(name)
	if err != nil {
		return err
	}
	fmt.Printf("Playing %s (%.2f Hz) for %s...\n", str.Name, str.Frequency, flagToneDuration)
	return audio.PlayTone(str.Frequency, flagToneDuration, flagSampleRate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
