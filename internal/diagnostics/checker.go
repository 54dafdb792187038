package diagnostics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Status indicates whether a single check passed
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Item is one check result with an optional hint
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Report aggregates all checks
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	HasFailures bool      `json:"has_failures"`
	Items       []Item    `json:"items"`
}

// FFmpegProber locates FFmpeg and reports its version
type FFmpegProber interface {
	Version(ctx context.Context) (string, string, error)
}

// WhisperProber reports whether the transcription engine can run
type WhisperProber interface {
	Ready(ctx context.Context) error
	Model() string
}

// Checker validates external tools and working directories
type Checker struct {
	ffmpeg     FFmpegProber
	whisper    WhisperProber
	uploadDir  string
	outputDir  string
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies
func NewChecker(ffmpeg FFmpegProber, whisper WhisperProber, uploadDir, outputDir string) *Checker {
	return &Checker{
		ffmpeg:     ffmpeg,
		whisper:    whisper,
		uploadDir:  uploadDir,
		outputDir:  outputDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all checks and returns a combined report
func (c *Checker) Run(ctx context.Context) Report {
	items := []Item{
		c.checkFFmpeg(ctx),
		c.checkWhisper(ctx),
		c.checkDir("upload_dir", "Upload directory", c.uploadDir),
		c.checkDir("output_dir", "Output directory", c.outputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == StatusFail {
			hasFailures = true
			break
		}
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

func (c *Checker) checkFFmpeg(ctx context.Context) Item {
	item := Item{ID: "tool_ffmpeg", Name: "FFmpeg"}

	path, version, err := c.ffmpeg.Version(ctx)
	if err != nil {
		item.Status = StatusFail
		item.Message = err.Error()
		item.Hint = "Install FFmpeg and put it on PATH, or set FFMPEG_PATH to the binary."
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("%s (%s)", version, path)
	return item
}

func (c *Checker) checkWhisper(ctx context.Context) Item {
	item := Item{ID: "tool_whisper", Name: "Whisper"}

	if err := c.whisper.Ready(ctx); err != nil {
		item.Status = StatusFail
		item.Message = firstLine(err.Error())
		item.Hint = "Install it with `pip install openai-whisper` for the configured python."
		return item
	}

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Model %s ready", c.whisper.Model())
	return item
}

// checkDir validates directory existence and write access
func (c *Checker) checkDir(id, name, dir string) Item {
	item := Item{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("%s is not configured.", name)
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = StatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = StatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
