package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/ritmo/beat"
	"github.com/RyanBlaney/ritmo/engine"
	"github.com/RyanBlaney/ritmo/logging"
	"github.com/RyanBlaney/ritmo/transcode"
)

var version = "dev"

var (
	flagBPM     float64
	flagJSON    bool
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "ritmo",
		Short: "Beat tracking and tempo structure analysis",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				logging.SetLevel(logging.DebugLevel)
			} else {
				logging.SetLevel(logging.WarnLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	analyze := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Analyze a WAV file for tempo, beats, and fermatas",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyze.Flags().Float64Var(&flagBPM, "bpm", 0, "override the detected BPM")
	analyze.Flags().BoolVar(&flagJSON, "json", false, "print the full result as JSON")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ritmo", version)
		},
	}

	root.AddCommand(analyze, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer engine.Teardown()

	buf, err := transcode.DecodeWAVFile(args[0])
	if err != nil {
		return err
	}

	analyzer := beat.NewAnalyzer(nil)
	if !flagJSON {
		analyzer.SetProgress(func(stage string, percent int) {
			fmt.Fprintf(os.Stderr, "\r%-16s %3d%%", stage, percent)
			if percent == 100 {
				fmt.Fprintln(os.Stderr)
			}
		})
	}

	result, err := analyzer.Analyze(ctx, buf.Mono(), buf.SampleRate())
	if err != nil {
		return err
	}

	if flagBPM > 0 {
		result, err = analyzer.ApplyManualBPM(result, flagBPM)
		if err != nil {
			return err
		}
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(result)
	return nil
}

func printSummary(r *beat.Result) {
	fmt.Printf("BPM:        %.1f (%s, confidence %.2f)\n", r.BPM, r.ConfidenceLevel, r.Confidence)
	fmt.Printf("Music span: %.2fs - %.2fs\n", r.MusicStartTime, r.MusicEndTime)
	fmt.Printf("Beats:      %d, first downbeat at %.3fs\n", len(r.Beats), r.Offset)

	if len(r.TempoRegions) > 0 {
		fmt.Println("Regions:")
		for _, reg := range r.TempoRegions {
			fmt.Printf("  %2d  %7.2fs - %7.2fs  %-8s %s\n",
				reg.ID, reg.StartTime, reg.EndTime, reg.Type, reg.Description)
		}
	}
	for _, w := range r.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}
