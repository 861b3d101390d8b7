// Package matting separates a foreground subject from its background.
//
// The matting model itself is an external collaborator: anything that turns
// encoded image bytes into encoded bytes with an alpha channel satisfies
// Matter. HTTPMatter talks to a rembg-compatible server.
package matting

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/menta2k/photo-composer/pkg/errs"
	"github.com/menta2k/photo-composer/pkg/processing"
	"github.com/menta2k/photo-composer/pkg/raster"
)

// Matter returns data re-encoded with a transparent background.
type Matter interface {
	Matte(ctx context.Context, data []byte) ([]byte, error)
}

// MatterFunc adapts a function to Matter.
type MatterFunc func(ctx context.Context, data []byte) ([]byte, error)

// Matte calls f.
func (f MatterFunc) Matte(ctx context.Context, data []byte) ([]byte, error) {
	return f(ctx, data)
}

// DefaultServerURL is where a local rembg server listens.
const DefaultServerURL = "http://localhost:7000"

// HTTPConfig holds the HTTP matting client settings
type HTTPConfig struct {
	Timeout        time.Duration
	RequestsPerSec float64 // <= 0 disables limiting
	Burst          int
	Model          string // optional rembg model name
}

// DefaultHTTPConfig returns the standard client settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:        2 * time.Minute,
		RequestsPerSec: 2,
		Burst:          1,
	}
}

// HTTPMatter calls POST /api/remove on a rembg-compatible server.
type HTTPMatter struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	config     HTTPConfig
}

// NewHTTPMatter creates a client for serverURL.
func NewHTTPMatter(serverURL string, config HTTPConfig) *HTTPMatter {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	serverURL = strings.TrimSuffix(serverURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultHTTPConfig().Timeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSec), max(config.Burst, 1))
	}

	return &HTTPMatter{
		baseURL:    serverURL,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		config:     config,
	}
}

// Matte uploads data as multipart field "file" and returns the response body.
func (m *HTTPMatter) Matte(ctx context.Context, data []byte) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if m.config.Model != "" {
		if err := w.WriteField("model", m.config.Model); err != nil {
			return nil, fmt.Errorf("failed to write model field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/remove", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matting server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty response from matting server")
	}
	return out, nil
}

// Remover turns images into transparent cut-outs through a Matter.
type Remover struct {
	matter Matter
	logger *zap.Logger
}

// NewRemover creates a Remover backed by matter.
func NewRemover(matter Matter) *Remover {
	return &Remover{matter: matter, logger: zap.NewNop()}
}

// SetLogger sets the logger.
func (r *Remover) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Remove returns img with its background made transparent. Any failure of
// the collaborator, including undecodable output, is errs.ErrMattingFailure.
func (r *Remover) Remove(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	const op = "matting.Remove"
	if err := raster.Validate(op, img); err != nil {
		return nil, err
	}
	data, err := processing.Encode(img, "png", 0)
	if err != nil {
		return nil, fmt.Errorf("encoding matting input: %w", err)
	}
	return r.RemoveBytes(ctx, data)
}

// RemoveBytes is Remove for an already encoded image.
func (r *Remover) RemoveBytes(ctx context.Context, data []byte) (*image.NRGBA, error) {
	const op = "matting.Remove"
	if r.matter == nil {
		return nil, errs.New(errs.KindMattingFailure, op, "no matting collaborator configured")
	}

	start := time.Now()
	out, err := r.matter.Matte(ctx, data)
	if err != nil {
		return nil, errs.Wrap(errs.KindMattingFailure, op, err, "matting failed")
	}
	matted, err := processing.Decode(out)
	if err != nil {
		return nil, errs.Wrap(errs.KindMattingFailure, op, err, "matting output is not an image")
	}
	r.logger.Debug("matted subject",
		zap.Int("input_bytes", len(data)), zap.Int("output_bytes", len(out)), zap.Duration("took", time.Since(start)))
	return raster.ToNRGBA(matted), nil
}
