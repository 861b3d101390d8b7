package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"go.uber.org/zap"

	composer "github.com/menta2k/photo-composer"
	"github.com/menta2k/photo-composer/internal/config"
	"github.com/menta2k/photo-composer/pkg/client"
	"github.com/menta2k/photo-composer/pkg/detection"
	"github.com/menta2k/photo-composer/pkg/llamacpp"
	"github.com/menta2k/photo-composer/pkg/ollama"
	"github.com/menta2k/photo-composer/pkg/pipeline"
	"github.com/menta2k/photo-composer/pkg/ratio"
	"github.com/menta2k/photo-composer/pkg/vision"
)

const defaultOllamaURL = "http://localhost:11434"

// commandExec returns the pipeline step for command. Per-image operations
// record a failure for the image and move on to the next one.
func commandExec(command string, e *composer.Engine, cfg *config.Config, f *flags) (pipeline.ExecFunc, error) {
	switch command {
	case "crop":
		ar, err := ratio.Parse(f.ratio)
		if err != nil {
			return nil, err
		}
		return eachImage(func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error) {
			res, err := e.Crop(ctx, img, ar.String())
			if err != nil {
				return nil, err
			}
			key := fmt.Sprintf("%d_%s", n, strings.ReplaceAll(ar.String(), ":", "x"))
			items := []pipeline.Item{{Key: key, Image: res.Image}}
			if f.debug {
				items = append(items, pipeline.Item{Key: key + "_debug", Image: e.DebugOverlay(img, res), Format: "png"})
			}
			return items, nil
		}), nil

	case "frame":
		return eachImage(func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error) {
			res, err := e.Frame(ctx, img, f.style)
			if err != nil {
				return nil, err
			}
			return []pipeline.Item{{Key: fmt.Sprintf("%d_%s", n, res.Style), Image: res.Image}}, nil
		}), nil

	case "custom-frame":
		if f.frame == "" {
			return nil, fmt.Errorf("custom-frame needs --frame")
		}
		frameData, err := os.ReadFile(f.frame)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}
		return eachImage(func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error) {
			res, err := e.CustomFrame(ctx, img, frameData)
			if err != nil {
				return nil, err
			}
			key := fmt.Sprintf("%d_custom_%s", n, strings.ReplaceAll(res.Bucket.String(), ":", "x"))
			return []pipeline.Item{{Key: key, Image: res.Image}}, nil
		}), nil

	case "collage":
		return func(ctx context.Context, images []image.Image) (pipeline.Outcome, error) {
			res, err := e.Collage(ctx, f.layout, images, f.caption)
			if err != nil {
				return pipeline.Outcome{}, err
			}
			return pipeline.Outcome{Items: []pipeline.Item{{Key: res.Layout, Image: res.Image}}}, nil
		}, nil

	case "swap":
		if len(f.backgrounds) == 0 {
			return nil, fmt.Errorf("swap needs --backgrounds")
		}
		return func(ctx context.Context, subjects []image.Image) (pipeline.Outcome, error) {
			backgrounds := make([]image.Image, 0, len(f.backgrounds))
			for _, src := range f.backgrounds {
				bg, err := e.LoadImage(ctx, src)
				if err != nil {
					return pipeline.Outcome{}, fmt.Errorf("failed to load background %s: %w", src, err)
				}
				backgrounds = append(backgrounds, bg)
			}

			res, err := e.Swap(ctx, subjects, backgrounds, cfg.Swap.BottomMargin)
			if err != nil {
				return pipeline.Outcome{}, err
			}
			var out pipeline.Outcome
			for _, o := range res.Outputs {
				out.Items = append(out.Items, pipeline.Item{Key: o.Key.String(), Image: o.Image})
			}
			for _, fl := range res.Failures {
				out.Failures = append(out.Failures, pipeline.FailureFrom(fl.Key.String(), fl.Err))
			}
			return out, nil
		}, nil

	case "export":
		return func(ctx context.Context, images []image.Image) (pipeline.Outcome, error) {
			var out pipeline.Outcome
			for i, img := range images {
				res, err := e.Export(ctx, img, cfg.Export.Platforms...)
				if err != nil {
					out.Failures = append(out.Failures, pipeline.FailureFrom(fmt.Sprint(i+1), err))
					continue
				}
				for _, o := range res.Outputs {
					out.Items = append(out.Items, pipeline.Item{
						Key:    fmt.Sprintf("%d_%s", i+1, o.Platform.Name),
						Image:  o.Image,
						Data:   o.Data,
						Format: o.Platform.Format,
					})
				}
				for _, fl := range res.Failures {
					out.Failures = append(out.Failures, pipeline.FailureFrom(fmt.Sprintf("%d_%s", i+1, fl.Platform), fl.Err))
				}
			}
			return out, nil
		}, nil

	case "retouch":
		return eachImage(func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error) {
			out, err := e.Retouch(ctx, img)
			if err != nil {
				return nil, err
			}
			return []pipeline.Item{{Key: fmt.Sprintf("%d_retouched", n), Image: out}}, nil
		}), nil

	case "remove-bg":
		return eachImage(func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error) {
			out, err := e.RemoveBackground(ctx, img)
			if err != nil {
				return nil, err
			}
			return []pipeline.Item{{Key: fmt.Sprintf("%d_cutout", n), Image: out, Format: "png"}}, nil
		}), nil
	}

	return nil, fmt.Errorf("unknown command %q", command)
}

// eachImage adapts a per-image operation to an ExecFunc. n is 1-based.
func eachImage(fn func(ctx context.Context, n int, img image.Image) ([]pipeline.Item, error)) pipeline.ExecFunc {
	return func(ctx context.Context, images []image.Image) (pipeline.Outcome, error) {
		var out pipeline.Outcome
		for i, img := range images {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			items, err := fn(ctx, i+1, img)
			if err != nil {
				out.Failures = append(out.Failures, pipeline.FailureFrom(fmt.Sprint(i+1), err))
				continue
			}
			out.Items = append(out.Items, items...)
		}
		return out, nil
	}
}

// buildDetectors returns the region detectors enabled in cfg, faces first.
func buildDetectors(cfg config.DetectionConfig, logger *zap.Logger) ([]vision.RegionDetector, error) {
	var detectors []vision.RegionDetector

	if cfg.FaceCascade != "" {
		cascade, err := os.ReadFile(cfg.FaceCascade)
		if err != nil {
			return nil, fmt.Errorf("failed to read face cascade: %w", err)
		}
		faces, err := vision.NewFaceDetector(cascade, vision.DefaultFaceConfig())
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, faces)
	}

	var visionClient client.VisionClient
	switch cfg.Backend {
	case "", "none":
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = defaultOllamaURL
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		visionClient = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		visionClient = c
	default:
		return nil, fmt.Errorf("unknown backend %q (use ollama or llamacpp)", cfg.Backend)
	}
	if visionClient != nil {
		dcfg := detection.DefaultConfig()
		if cfg.Model != "" {
			dcfg.Model = cfg.Model
		}
		if cfg.MaxDimension > 0 {
			dcfg.MaxDimension = cfg.MaxDimension
		}
		dcfg.MinConfidence = cfg.MinConfidence
		detectors = append(detectors, detection.NewDetectorWithConfig(visionClient, dcfg))
		logger.Info("subject detection enabled", zap.String("backend", cfg.Backend), zap.String("model", dcfg.Model))
	}

	if cfg.Saliency {
		detectors = append(detectors, vision.NewSaliencyDetector())
	}
	return detectors, nil
}
