// Package pipeline runs one composition operation end to end: load the
// inputs, execute the operation, encode the results and hand them to a Sink.
//
// Every run gets a UUID that prefixes its artifact names
// ("{id}_{op}_{key}.{ext}") and its report.
package pipeline

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/menta2k/photo-composer/internal/utils"
	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/raster"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Item is one result of an operation. Data, when set, is emitted as is in
// Format; otherwise Image is encoded.
type Item struct {
	Key     string
	Image   *image.NRGBA
	Data    []byte
	Format  string
	Quality int
}

// Failure is a unit of work that produced no artifact.
type Failure struct {
	Key   string `json:"key"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

// FailureFrom converts err into a report entry.
func FailureFrom(key string, err error) Failure {
	return Failure{Key: key, Kind: string(errs.KindOf(err)), Error: err.Error()}
}

// Outcome is what an operation hands back to the runner.
type Outcome struct {
	Items    []Item
	Failures []Failure
}

// ExecFunc runs an operation over the loaded inputs. A returned error
// fails the whole run.
type ExecFunc func(ctx context.Context, images []image.Image) (Outcome, error)

// Job describes a run. Sources (paths or URLs) are loaded after Images.
type Job struct {
	Op      string
	Images  []image.Image
	Sources []string
	Format  string // default output format, png when empty
	Quality int
	Exec    ExecFunc
}

// Artifact is an emitted output.
type Artifact struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Format   string `json:"format"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Size     int    `json:"size"`
}

// Report summarizes a run.
type Report struct {
	ID         string     `json:"id"`
	Op         string     `json:"op"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMS int64      `json:"duration_ms"`
	Inputs     int        `json:"inputs"`
	Outputs    []Artifact `json:"outputs"`
	Failures   []Failure  `json:"failures"`
}

// Runner executes jobs.
type Runner struct {
	processor *processing.Processor
	sink      Sink
	logger    *zap.Logger
	newID     func() string
}

// NewRunner creates a runner that loads through processor and emits to
// sink. A nil processor gets the default one.
func NewRunner(processor *processing.Processor, sink Sink) *Runner {
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Runner{
		processor: processor,
		sink:      sink,
		logger:    zap.NewNop(),
		newID:     uuid.NewString,
	}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run loads the job's inputs, executes it and emits every item. Load and
// execution errors fail the run; emit errors become report failures.
func (r *Runner) Run(ctx context.Context, job Job) (*Report, error) {
	const op = "pipeline.Run"
	if job.Op == "" || job.Exec == nil {
		return nil, errs.InvalidInput(op, "job needs an operation name and an exec function")
	}
	if len(job.Images)+len(job.Sources) == 0 {
		return nil, errs.InvalidInput(op, "job %q has no inputs", job.Op)
	}
	format, err := processing.NormalizeFormat(orDefault(job.Format, "png"))
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, op, err, "bad output format")
	}

	rep := &Report{ID: r.newID(), Op: job.Op, StartedAt: time.Now()}
	log := r.logger.With(zap.String("run_id", rep.ID), zap.String("op", job.Op))

	done := step(log, "load")
	images, err := r.load(ctx, job)
	if err != nil {
		return nil, err
	}
	rep.Inputs = len(images)
	done(zap.Int("images", len(images)))

	done = step(log, "exec")
	outcome, err := job.Exec(ctx, images)
	if err != nil {
		log.Warn("operation failed", zap.Error(err))
		return nil, err
	}
	done(zap.Int("items", len(outcome.Items)), zap.Int("failures", len(outcome.Failures)))

	done = step(log, "emit")
	rep.Failures = append(rep.Failures, outcome.Failures...)
	for _, item := range outcome.Items {
		a, err := r.emit(ctx, rep.ID, job, format, item)
		if err != nil {
			rep.Failures = append(rep.Failures, FailureFrom(item.Key, err))
			continue
		}
		rep.Outputs = append(rep.Outputs, a)
	}
	done(zap.Int("outputs", len(rep.Outputs)))

	rep.DurationMS = time.Since(rep.StartedAt).Milliseconds()
	return rep, nil
}

// WriteReport emits rep as "{id}_report.json".
func (r *Runner) WriteReport(ctx context.Context, rep *Report) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return r.sink.Put(ctx, rep.ID+"_report.json", data)
}

func (r *Runner) load(ctx context.Context, job Job) ([]image.Image, error) {
	const op = "pipeline.Load"
	images := append([]image.Image(nil), job.Images...)
	for _, src := range job.Sources {
		img, err := r.processor.LoadImageSmart(ctx, src)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidInput, op, err, "cannot load input").WithKey(src)
		}
		images = append(images, img)
	}
	return images, nil
}

func (r *Runner) emit(ctx context.Context, id string, job Job, format string, item Item) (Artifact, error) {
	if item.Format != "" {
		f, err := processing.NormalizeFormat(item.Format)
		if err != nil {
			return Artifact{}, err
		}
		format = f
	}
	quality := item.Quality
	if quality == 0 {
		quality = job.Quality
	}

	a := Artifact{Key: item.Key, Format: format}
	data := item.Data
	if item.Image != nil {
		a.Width, a.Height = item.Image.Bounds().Dx(), item.Image.Bounds().Dy()
	}
	if data == nil {
		if item.Image == nil {
			return Artifact{}, errs.InvalidInput("pipeline.Emit", "item %q has no image", item.Key)
		}
		img := item.Image
		if format == "jpeg" && !raster.IsOpaque(img) {
			img = raster.Flatten(img, color.NRGBA{255, 255, 255, 255})
		}
		var err error
		if data, err = processing.Encode(img, format, quality); err != nil {
			return Artifact{}, err
		}
	}

	a.Name = utils.OutputName(id, job.Op, item.Key, processing.Extension(format))
	loc, err := r.sink.Put(ctx, a.Name, data)
	if err != nil {
		return Artifact{}, err
	}
	a.Location = loc
	a.Size = len(data)
	return a, nil
}

// step logs the start of a named step and returns a func that logs its
// completion with the elapsed time.
func step(log *zap.Logger, name string) func(fields ...zap.Field) {
	start := time.Now()
	log.Info("STEP START", zap.String("step", name))
	return func(fields ...zap.Field) {
		fields = append(fields, zap.String("step", name), zap.Duration("took", time.Since(start)))
		log.Info("STEP DONE", fields...)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
