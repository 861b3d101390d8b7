package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	composer "github.com/menta2k/photo-composer"
	"github.com/menta2k/photo-composer/internal/config"
	"github.com/menta2k/photo-composer/internal/logging"
	"github.com/menta2k/photo-composer/internal/utils"
	"github.com/menta2k/photo-composer/pkg/matting"
	"github.com/menta2k/photo-composer/pkg/pipeline"
)

const usage = `usage: %s <command> [flags] inputs...

commands:
  crop          smart-crop to an aspect ratio (--ratio, --margin, --debug)
  frame         add a preset frame (--style)
  custom-frame  composite a frame image over a smart crop (--frame)
  collage       combine the inputs with a layout (--layout, --caption)
  swap          paste matted subjects onto backgrounds (--backgrounds)
  export        render platform sizes (--platforms)
  retouch       automatic enhancement
  remove-bg     transparent background (needs --matting-url)

inputs are files, directories or http(s) URLs.
`

// flags holds every command-line option; each command reads the ones it needs.
type flags struct {
	configPath  string
	outDir      string
	format      string
	quality     int
	logLevel    string
	ratio       string
	margin      float64
	style       string
	frame       string
	layout      string
	caption     string
	backgrounds []string
	platforms   []string
	debug       bool
	mattingURL  string
	backend     string
	detectURL   string
	model       string
	faces       string
	saliency    bool
}

func newFlagSet(name string, f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.StringVarP(&f.configPath, "config", "c", "", "config file (yaml or json), defaults to "+config.GetConfigPath()+" when present")
	fs.StringVarP(&f.outDir, "out", "o", "", "output directory")
	fs.StringVar(&f.format, "format", "", "output format: jpeg|png|webp")
	fs.IntVar(&f.quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")

	fs.StringVarP(&f.ratio, "ratio", "r", "4:5", "aspect ratio, W:H or a name like square, story, widescreen")
	fs.Float64Var(&f.margin, "margin", 0, "safety margin fraction kept clear around the focal point (0..0.5)")
	fs.BoolVar(&f.debug, "debug", false, "also write an overlay with the crop rectangle and focal point")
	fs.StringVarP(&f.style, "style", "s", "classic", "frame style")
	fs.StringVar(&f.frame, "frame", "", "frame image (png with a transparent window)")
	fs.StringVarP(&f.layout, "layout", "l", "auto-grid", "collage layout")
	fs.StringVar(&f.caption, "caption", "", "collage caption")
	fs.StringSliceVarP(&f.backgrounds, "backgrounds", "b", nil, "background images for swap")
	fs.StringSliceVarP(&f.platforms, "platforms", "p", nil, "export platforms, all when empty")

	fs.StringVar(&f.mattingURL, "matting-url", "", "background removal server URL")
	fs.StringVar(&f.backend, "backend", "", "vision model for subject detection: none|ollama|llamacpp")
	fs.StringVar(&f.detectURL, "detect-url", "", "vision model server URL")
	fs.StringVar(&f.model, "model", "", "vision model name")
	fs.StringVar(&f.faces, "faces", "", "pigo face cascade file")
	fs.BoolVar(&f.saliency, "saliency", false, "use smartcrop saliency as a region detector")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "\nflags:")
		fs.PrintDefaults()
	}
	return fs
}

func main() {
	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		fmt.Fprintf(os.Stderr, usage, filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	command := os.Args[1]
	if command == "version" {
		fmt.Println(composer.GetVersion())
		return
	}

	var f flags
	fs := newFlagSet(command, &f)
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command, fs.Args(), cfg, &f, logger); err != nil {
		logger.Error("run failed", zap.String("command", command), zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the flags the user set.
func loadConfig(fs *pflag.FlagSet, f *flags) (*config.Config, error) {
	path := f.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if fs.Changed("out") {
		cfg.Output.Dir = f.outDir
	}
	if fs.Changed("format") {
		cfg.Output.Format = f.format
	}
	if fs.Changed("quality") {
		cfg.Output.Quality = f.quality
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("margin") {
		cfg.Cropper.SafetyMargin = f.margin
	}
	if fs.Changed("platforms") {
		cfg.Export.Platforms = f.platforms
	}
	if fs.Changed("matting-url") {
		cfg.Matting.URL = f.mattingURL
	}
	if fs.Changed("backend") {
		cfg.Detection.Backend = f.backend
	}
	if fs.Changed("detect-url") {
		cfg.Detection.URL = f.detectURL
	}
	if fs.Changed("model") {
		cfg.Detection.Model = f.model
	}
	if fs.Changed("faces") {
		cfg.Detection.FaceCascade = f.faces
	}
	if fs.Changed("saliency") {
		cfg.Detection.Saliency = f.saliency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, command string, args []string, cfg *config.Config, f *flags, logger *zap.Logger) error {
	inputs, err := utils.ExpandInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs given")
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	exec, err := commandExec(command, engine, cfg, f)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(engine.Processor(), pipeline.NewDirSink(cfg.Output.Dir))
	runner.SetLogger(logger.Named("pipeline"))

	rep, err := runner.Run(ctx, pipeline.Job{
		Op:      command,
		Sources: inputs,
		Format:  cfg.Output.Format,
		Quality: cfg.Output.Quality,
		Exec:    exec,
	})
	if err != nil {
		return err
	}

	if cfg.Output.Report {
		loc, err := runner.WriteReport(ctx, rep)
		if err != nil {
			logger.Warn("report not written", zap.Error(err))
		} else {
			logger.Info("report written", zap.String("path", loc))
		}
	}

	printSummary(rep)
	if len(rep.Outputs) == 0 && len(rep.Failures) > 0 {
		return fmt.Errorf("%s produced no outputs, %d failed", command, len(rep.Failures))
	}
	return nil
}

// newEngine builds the composer engine from cfg.
func newEngine(cfg *config.Config, logger *zap.Logger) (*composer.Engine, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger

	if cfg.Matting.URL != "" {
		opts.Matter = matting.NewHTTPMatter(cfg.Matting.URL, matting.HTTPConfig{
			Timeout:        cfg.Matting.Timeout,
			RequestsPerSec: cfg.Matting.RequestsPerSec,
			Burst:          cfg.Matting.Burst,
			Model:          cfg.Matting.Model,
		})
	}

	detectors, err := buildDetectors(cfg.Detection, logger)
	if err != nil {
		return nil, err
	}
	opts.Detectors = detectors

	return composer.NewWithConfig(opts), nil
}

func printSummary(rep *pipeline.Report) {
	for _, a := range rep.Outputs {
		fmt.Printf("wrote %s (%dx%d, %s)\n", a.Location, a.Width, a.Height, utils.FormatFileSize(int64(a.Size)))
	}
	for _, fl := range rep.Failures {
		fmt.Printf("failed %s: %s\n", fl.Key, fl.Error)
	}
	fmt.Printf("%s: %d outputs, %d failures in %dms\n", rep.Op, len(rep.Outputs), len(rep.Failures), rep.DurationMS)
}
