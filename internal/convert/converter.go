// Package convert normalizes source documents into ordered page images.
// Office documents go through an external converter to PDF first; PDFs are
// rasterized one PNG per page. Anything else is unsupported.
package convert

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/hothouse/hothouse/internal/config"
	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
)

// officeExtensions are converted to PDF before rasterization.
var officeExtensions = map[string]bool{
	"doc":  true,
	"docx": true,
	"rtf":  true,
}

// CommandRunner executes the external document converter and returns its
// stderr output.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// Converter downloads an attachment and produces page-image files under a
// per-candidate working directory. It holds no state across calls.
type Converter struct {
	workDir    string
	soffice    string
	scale      float64
	httpClient *http.Client
	rasterizer Rasterizer
	run        CommandRunner
	logger     logger.Logger
}

// Option overrides a converter collaborator, mainly for tests.
type Option func(*Converter)

// WithHTTPClient overrides the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(cv *Converter) { cv.httpClient = c }
}

// WithRasterizer overrides the PDF rasterizer.
func WithRasterizer(r Rasterizer) Option {
	return func(cv *Converter) { cv.rasterizer = r }
}

// WithCommandRunner overrides the external converter invocation.
func WithCommandRunner(run CommandRunner) Option {
	return func(cv *Converter) { cv.run = run }
}

// New creates a Converter.
func New(cfg config.ConvertConfig, log logger.Logger, opts ...Option) *Converter {
	cv := &Converter{
		workDir:    cfg.WorkDir,
		soffice:    cfg.SofficePath,
		scale:      cfg.ViewportScale,
		httpClient: http.DefaultClient,
		rasterizer: NewRasterizer(),
		run:        runCommand,
		logger:     log,
	}
	for _, opt := range opts {
		opt(cv)
	}
	return cv
}

// Convert downloads the attachment and returns the ordered page-image
// paths, named {type}-{n}.png. Conversion problems (unsupported format,
// converter failure) yield an empty result without an error; only the
// download itself can fail hard. Callers own deleting the page files.
func (c *Converter) Convert(ctx context.Context, candidateID int64, att *greenhouse.Attachment, attachmentType string) ([]string, error) {
	parsed, err := url.Parse(att.URL)
	if err != nil {
		return nil, fmt.Errorf("parse attachment url: %w", err)
	}
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))

	dir := filepath.Join(c.workDir, fmt.Sprintf("%d", candidateID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.%s", attachmentType, extension))
	if err := c.download(ctx, att.URL, filename); err != nil {
		return nil, fmt.Errorf("download %s: %w", attachmentType, err)
	}

	log := c.logger.With(
		logger.Int64("candidate_id", candidateID),
		logger.String("type", attachmentType),
	)

	if officeExtensions[extension] {
		log.Debug("converting office document to pdf", logger.String("file", filename))
		stderr, runErr := c.run(ctx, c.soffice, "--headless", "--convert-to", "pdf", filename, "--outdir", dir)
		if runErr != nil || stderr != "" {
			log.Error("external converter failed",
				logger.String("stderr", stderr),
				logger.Error(runErr),
			)
			return nil, nil
		}
		extension = "pdf"
		filename = filepath.Join(dir, fmt.Sprintf("%s.%s", attachmentType, extension))
	}

	if extension != "pdf" {
		log.Warn("unsupported attachment format", logger.String("extension", extension))
		return nil, nil
	}

	pages, err := c.rasterizer.Rasterize(filename, c.scale)
	if err != nil {
		log.Error("pdf rasterization failed", logger.Error(err))
		return nil, nil
	}

	pagePaths := make([]string, 0, len(pages))
	for i, img := range pages {
		pagePath := filepath.Join(dir, fmt.Sprintf("%s-%d.png", attachmentType, i))
		if err := writePNG(pagePath, img); err != nil {
			return nil, fmt.Errorf("write page image: %w", err)
		}
		pagePaths = append(pagePaths, pagePath)
	}

	log.Debug("attachment converted", logger.Int("pages", len(pagePaths)))
	return pagePaths, nil
}

func (c *Converter) download(ctx context.Context, fileURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return err
	}
	return nil
}

func writePNG(dest string, img image.Image) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stderr.String()), err
}
