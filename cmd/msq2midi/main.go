// Package main is the entry point for the msq2midi CLI
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/james-see/msq2midi/pkg/api"
	"github.com/james-see/msq2midi/pkg/config"
	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/converter/devices"
	"github.com/james-see/msq2midi/pkg/debug"
	"github.com/james-see/msq2midi/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// filterUsage documents the syntax accepted by converter.ParseFilter
const filterUsage = "Drop events before encoding: p=program change, a=aftertouch, b=pitch bend, " +
	"l=controllers, c<n>=mute channel n, x<n>=solo channel n (e.g. pax14, lc10)"

var (
	outputFile string
	forceInit  bool
	filterSpec string
	trackNum   int
	timebase   int
	truncate   bool
	seqName    string
	debugLog   string
	serverPort int
	jsonOutput bool

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "msq2midi",
	Short: "Convert between MIDI files and Roland MSQ-100 bulk dumps",
	Long: `msq2midi converts standard MIDI files to and from the Roland MSQ-100
Q1 bulk dump format, either as raw .q1 data or wrapped in SysEx (.syx).

Examples:
  msq2midi convert song.mid -o song.syx
  msq2midi midi2syx song.mid --filter pax --name "Demo"
  msq2midi syx2midi dump.syx -o dump.mid --timebase 480
  msq2midi info dump.syx
  msq2midi tui
  msq2midi serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	SilenceUsage:      true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Detects the input format from its extension or content and converts to the format named by the output extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var infoCmd = &cobra.Command{
	Use:   "info <input>",
	Short: "Show the block layout and event counts of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(cfg)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := config.ConfigPath()
		if config.Exists() && !forceInit {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// conversionCmd builds one of the fixed-direction commands, e.g. midi2syx
func conversionCmd(from, to converter.Format) *cobra.Command {
	name := fmt.Sprintf("%s2%s", from, to)
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <input%s>", name, outputExt(from)),
		Short: fmt.Sprintf("Convert %s to %s", strings.ToUpper(string(from)), strings.ToUpper(string(to))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirect(args[0], from, to)
		},
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&filterSpec, "filter", "", filterUsage)
	pf.IntVar(&trackNum, "track", 0, "MIDI track to read (0 merges all tracks)")
	pf.IntVar(&timebase, "timebase", 0, "Ticks per quarter note of generated MIDI files (96-960)")
	pf.BoolVar(&truncate, "truncate", false, "Cut sequences that do not fit instead of failing")
	pf.StringVar(&seqName, "name", "", "Sequence name stored in the dump")
	pf.StringVar(&debugLog, "debug", "", "Write a debug log to this file")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	infoCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from config)")

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(convertCmd)
	pairs := [][2]converter.Format{
		{converter.FormatMIDI, converter.FormatSyx},
		{converter.FormatSyx, converter.FormatMIDI},
		{converter.FormatMIDI, converter.FormatQ1},
		{converter.FormatQ1, converter.FormatMIDI},
		{converter.FormatQ1, converter.FormatSyx},
		{converter.FormatSyx, converter.FormatQ1},
	}
	for _, p := range pairs {
		c := conversionCmd(p[0], p[1])
		c.Flags().StringVarP(&outputFile, "output", "o", "", fmt.Sprintf("Output %s file path", outputExt(p[1])))
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(infoCmd, tuiCmd, serveCmd, configCmd)
}

// setup loads the config file and lets explicit flags override it
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("filter") {
		f, err := converter.ParseFilter(filterSpec)
		if err != nil {
			return err
		}
		cfg.Filter = f
	}
	if flags.Changed("track") {
		if trackNum < 0 {
			return fmt.Errorf("invalid track %d", trackNum)
		}
		cfg.Track = trackNum
	}
	if flags.Changed("timebase") {
		cfg.Timebase = int(converter.NormalizeTimebase(timebase))
	}
	if flags.Changed("truncate") {
		cfg.Truncate = truncate
	}
	if flags.Changed("name") {
		cfg.Name = seqName
	}
	if flags.Changed("debug") {
		cfg.DebugLog = debugLog
	}

	if cfg.DebugLog != "" {
		if err := debug.Enable(cfg.DebugLog); err != nil {
			return err
		}
		debug.Log("cli", "%s %s", cmd.Name(), strings.Join(args, " "))
	}
	return nil
}

// teardown closes the debug log opened by setup
func teardown(cmd *cobra.Command, args []string) {
	if debug.Enabled() {
		fmt.Fprintf(os.Stderr, "Debug log written to %s\n", cfg.DebugLog)
		debug.Disable()
	}
}

func newConverter() *converter.Converter {
	device := devices.NewMSQ100()
	device.Filter = cfg.Filter
	device.Truncate = cfg.Truncate
	if cfg.Name != "" {
		device.SequenceName = cfg.Name
	}

	conv := converter.New(device)
	conv.MIDI().Track = cfg.Track
	conv.MIDI().Timebase = converter.NormalizeTimebase(cfg.Timebase)
	return conv
}

func outputExt(f converter.Format) string {
	if f == converter.FormatMIDI {
		return ".mid"
	}
	return "." + string(f)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := newConverter().ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runDirect(input string, from, to converter.Format) error {
	output := getOutputPath(input, outputExt(to))

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	result, err := newConverter().Convert(data, from, to)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	info, err := newConverter().Inspect(data, converter.DetectFormat(args[0]))
	if err != nil {
		return err
	}

	if jsonOutput {
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("File:    %s (%s)\n", filepath.Base(args[0]), info.Format)
	fmt.Printf("Device:  %s\n", info.Device)
	if info.Manufacturer != "" {
		fmt.Printf("Maker:   %s\n", info.Manufacturer)
	}
	fmt.Printf("Name:    %s\n", info.Name)
	fmt.Printf("Blocks:  %d\n", info.Blocks)
	fmt.Printf("Size:    %d bytes\n", info.RawSize)
	fmt.Printf("Length:  %d ticks\n", info.Ticks)

	kinds := make([]string, 0, len(info.Events))
	for k := range info.Events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-16s %d\n", k, info.Events[k])
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	port := serverPort
	if port == 0 {
		if _, err := fmt.Sscanf(cfg.ServerPort, "%d", &port); err != nil {
			port = 8080
		}
	}
	fmt.Printf("Starting API server on port %d...\n", port)
	return api.StartServer(port, cfg)
}
