package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-piano/algorithms/spectral"
	"github.com/RyanBlaney/sonido-piano/algorithms/tonal"
	"github.com/RyanBlaney/sonido-piano/config"
	"github.com/RyanBlaney/sonido-piano/inference"
	"github.com/RyanBlaney/sonido-piano/logging"
	"github.com/RyanBlaney/sonido-piano/pipeline"
	"github.com/RyanBlaney/sonido-piano/store"
	"github.com/RyanBlaney/sonido-piano/transcode"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

const unknownTempo = "don't know, audio is too short"

// Global flags
var (
	configPath string
	dbPath     string
	verbose    bool
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.FgWhite, color.Faint)
	failure = color.New(color.FgRed)
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a JSON configuration file")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite database (env: "+config.EnvDBPath+")")
	flag.BoolVar(&verbose, "v", false, "Verbose (debug) logging")
	flag.Usage = printUsage
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fail("Failed to load configuration", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	logging.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, args := flag.Arg(0), flag.Args()[1:]
	logging.Debug("Executing command", logging.Fields{"command": command})

	switch command {
	case "analyze":
		err = handleAnalyze(ctx, cfg, args)
	case "cqt":
		err = handleCQT(ctx, cfg, args)
	case "mel":
		err = handleMel(ctx, cfg, args)
	case "history":
		err = handleHistory(ctx, cfg, args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fail(command+" failed", err)
	}
}

func handleAnalyze(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print the summary as JSON")
	noSave := cmd.Bool("no-save", false, "Do not store the analysis")
	path, err := parseWithFile(cmd, args)
	if err != nil {
		return err
	}

	var predictor inference.Predictor
	if cfg.Transcribe {
		predictor = inference.NewSalienceModel(cfg.Analysis.CQT.BinsPerOctave / 12)
	}
	analyzer := pipeline.NewAnalyzer(cfg.Analysis, predictor)
	if !*asJSON {
		analyzer.SetProgress(progressPrinter())
	}

	result, err := analyzer.AnalyzeFile(ctx, path, transcode.NewDecoder(cfg.Decoder))
	if err != nil {
		return err
	}
	summary := result.Summary()

	if !*noSave {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.Save(ctx, summary)
		if err != nil {
			return err
		}
		logging.Debug("Analysis stored", logging.Fields{"id": id})
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	printResult(path, result, summary)
	return nil
}

func printResult(path string, result *pipeline.Result, summary pipeline.Summary) {
	heading.Println("\nInput")
	if info := result.Media; info != nil {
		field("Format", fmt.Sprintf("%s (%s)", info.Format, info.Codec))
		field("Sample rate", fmt.Sprintf("%d Hz, %d channel(s)", info.SampleRate, info.Channels))
		if info.BitRate > 0 {
			field("Bit rate", humanize.SI(float64(info.BitRate), "bit/s"))
		}
	}
	if st, err := os.Stat(path); err == nil {
		field("Size", humanize.Bytes(uint64(st.Size())))
	}
	field("Duration", result.Duration.Round(time.Millisecond).String())

	heading.Println("\nAnalysis")
	field("MIDI duration", result.MIDIDuration().Round(time.Millisecond).String())
	field("Frames", humanize.Comma(int64(summary.Frames)))
	field("Onsets", humanize.Comma(int64(summary.Onsets)))

	if summary.Key != "" {
		field("Key (chroma)", describeKey(summary.Key))
	}
	if summary.TempoKnown() {
		field("Tempo", fmt.Sprintf("%.1f bpm", summary.Tempo))
	} else {
		field("Tempo", unknownTempo)
	}

	if result.Notes != nil {
		field("Notes", humanize.Comma(int64(summary.Notes)))
		field("Scale", strings.Join(summary.Scale, " "))
		if summary.ScaleKey != "" {
			field("Key (notes)", describeKey(summary.ScaleKey))
		}
	}
	field("Elapsed", summary.Elapsed.Round(time.Millisecond).String())
}

func describeKey(key string) string {
	accidentals, _, ok := tonal.KeySignatureAccidentals(key)
	if !ok {
		return key
	}
	switch {
	case accidentals > 0:
		return fmt.Sprintf("%s (%d sharp%s)", key, accidentals, plural(accidentals))
	case accidentals < 0:
		return fmt.Sprintf("%s (%d flat%s)", key, -accidentals, plural(-accidentals))
	default:
		return key
	}
}

func handleCQT(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("cqt", flag.ExitOnError)
	out := cmd.String("out", "", "Output JSON file (default: stdout)")
	path, err := parseWithFile(cmd, args)
	if err != nil {
		return err
	}

	sig, _, err := transcode.Load(ctx, path, transcode.NewDecoder(cfg.Decoder))
	if err != nil {
		return err
	}

	spec, start, end, err := pipeline.NewAnalyzer(cfg.Analysis, nil).Spectrogram(ctx, sig)
	if err != nil {
		return err
	}
	logging.Info("Constant-q spectrum ready", logging.Fields{
		"frames":     spec.NumFrames(),
		"bins":       spec.NumBins,
		"trim_start": start,
		"trim_end":   end,
	})

	return writeJSON(*out, spec)
}

func handleMel(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("mel", flag.ExitOnError)
	out := cmd.String("out", "", "Output JSON file (default: stdout)")
	path, err := parseWithFile(cmd, args)
	if err != nil {
		return err
	}

	sig, _, err := transcode.Load(ctx, path, transcode.NewDecoder(cfg.Decoder))
	if err != nil {
		return err
	}
	if err := sig.MonoResample(cfg.Mel.SampleRate); err != nil {
		return err
	}

	mel, err := spectral.NewMelTransform(cfg.Mel)
	if err != nil {
		return err
	}
	frames, err := mel.Compute(sig.Samples)
	if err != nil {
		return err
	}
	db, err := spectral.Power2DB(frames, 1, spectral.DefaultPowerAMin, spectral.DefaultTopDB)
	if err != nil {
		return err
	}

	return writeJSON(*out, struct {
		SampleRate int         `json:"sample_rate"`
		HopLength  int         `json:"hop_length"`
		NumMels    int         `json:"num_mels"`
		Data       [][]float64 `json:"data"`
	}{cfg.Mel.SampleRate, cfg.Mel.HopLength, cfg.Mel.NumMels, db})
}

func handleHistory(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("history", flag.ExitOnError)
	limit := cmd.Int("n", 20, "Number of analyses to list (0 lists all)")
	cmd.Parse(args)

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.List(ctx, *limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No analyses stored")
		return nil
	}

	heading.Printf("\n%d analysis(es):\n\n", len(records))
	for i, r := range records {
		tempo := unknownTempo
		if r.Summary.TempoKnown() {
			tempo = fmt.Sprintf("%.1f bpm", r.Summary.Tempo)
		}
		key := r.Summary.Key
		if key == "" {
			key = "-"
		}
		fmt.Printf("%d. %s\n", i+1, r.Summary.Source)
		fmt.Printf("   Key: %s | Tempo: %s | Onsets: %d | %s\n",
			key, tempo, r.Summary.Onsets, humanize.Time(r.CreatedAt))
	}
	return nil
}

// parseWithFile accepts the input file before or after the flags
func parseWithFile(cmd *flag.FlagSet, args []string) (string, error) {
	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if err := cmd.Parse(args); err != nil {
		return "", err
	}
	if path == "" {
		path = cmd.Arg(0)
	}
	if path == "" {
		return "", fmt.Errorf("usage: sonido-piano %s <audio_file>", cmd.Name())
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return json.NewEncoder(w).Encode(v)
}

func progressPrinter() inference.ProgressFunc {
	lastDecile := -1
	return func(done, total int) {
		pct := done * 100 / total
		if pct/10 == lastDecile && done != total {
			return
		}
		lastDecile = pct / 10
		fmt.Fprintf(os.Stderr, "\rtranscribing: %3d%%", pct)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func field(name, value string) {
	label.Printf("  %-14s", name+":")
	fmt.Println(" " + value)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func fail(msg string, err error) {
	failure.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("sonido-piano - piano audio analysis")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -config <path>     JSON configuration file")
	fmt.Println("  -db <path>         SQLite database (env: " + config.EnvDBPath + ", default: " + store.DefaultPath + ")")
	fmt.Println("  -v                 Debug logging")
	fmt.Println("\nUsage:")
	fmt.Println("  sonido-piano [global-options] analyze <audio_file> [-json] [-no-save]")
	fmt.Println("  sonido-piano [global-options] cqt <audio_file> [-out spectrum.json]")
	fmt.Println("  sonido-piano [global-options] mel <audio_file> [-out mel.json]")
	fmt.Println("  sonido-piano [global-options] history [-n 20]")
}
