// Package converter drives the external PDF-to-Word tool.
//
// The tool is treated as a black box: it receives a source PDF, a destination path and a
// zoom factor derived from the requested quality mode.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pdf-rocket/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/wb-go/wbf/zlog"
)

const (
	DefaultBinary        = "pdf2docx"
	DefaultBasicZoom     = 1.0
	DefaultFormattedZoom = 1.5
)

type Options struct {
	Binary        string
	BasicZoom     float64
	FormattedZoom float64
	// Timeout bounds one conversion. Zero means no limit.
	Timeout time.Duration
}

// executor runs a command and returns its combined output.
type executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Converter struct {
	opts   Options
	exec   executor
	logger *zlog.Zerolog
}

func New(opts Options, logger *zlog.Zerolog) *Converter {
	return newWithExecutor(opts, osExecutor{}, logger)
}

func newWithExecutor(opts Options, ex executor, logger *zlog.Zerolog) *Converter {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.BasicZoom <= 0 {
		opts.BasicZoom = DefaultBasicZoom
	}
	if opts.FormattedZoom <= 0 {
		opts.FormattedZoom = DefaultFormattedZoom
	}
	return &Converter{
		opts:   opts,
		exec:   ex,
		logger: logger,
	}
}

func (c *Converter) ZoomFactor(q domain.QualityMode) (float64, error) {
	switch q {
	case domain.QualityBasic:
		return c.opts.BasicZoom, nil
	case domain.QualityFormatted:
		return c.opts.FormattedZoom, nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownQuality, q)
	}
}

// Convert writes a Word document for the PDF at sourcePath to destinationPath.
// Failures reported by the external tool come back as *ConversionError.
func (c *Converter) Convert(ctx context.Context, sourcePath, destinationPath string, quality domain.QualityMode) error {
	zoom, err := c.ZoomFactor(quality)
	if err != nil {
		return err
	}

	if err := checkSource(sourcePath); err != nil {
		return err
	}

	if _, err := os.Stat(destinationPath); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destinationPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat destination: %w", err)
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	args := []string{
		"convert",
		sourcePath,
		destinationPath,
		"--start=0",
		"--zoom_factor=" + strconv.FormatFloat(zoom, 'f', -1, 64),
	}

	start := time.Now()
	c.logger.Debug().
		Str("binary", c.opts.Binary).
		Strs("args", args).
		Msg("Running converter")

	output, err := c.exec.Run(ctx, c.opts.Binary, args...)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("source", sourcePath).
			Str("quality", string(quality)).
			Str("output", string(output)).
			Msg("Converter failed")
		return &ConversionError{
			Source: sourcePath,
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}

	info, err := os.Stat(destinationPath)
	if err != nil || info.Size() == 0 {
		return &ConversionError{
			Source: sourcePath,
			Output: strings.TrimSpace(string(output)),
			Err:    ErrNoOutput,
		}
	}

	c.logger.Info().
		Str("source", sourcePath).
		Str("quality", string(quality)).
		Float64("zoom", zoom).
		Int64("output_size", info.Size()).
		Dur("duration", time.Since(start)).
		Msg("Conversion finished")
	return nil
}

func checkSource(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return fmt.Errorf("failed to read source: %w", err)
	}
	if !mtype.Is(domain.PDFContentType) {
		return fmt.Errorf("%w: detected %s", ErrNotPDF, mtype.String())
	}
	return nil
}
