package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// EnvFFmpegPath overrides every other way of locating the binary
const EnvFFmpegPath = "FFMPEG_PATH"

// ErrFFmpegNotFound is returned when no usable FFmpeg binary can be located
var ErrFFmpegNotFound = errors.New("FFmpeg executable not found")

// ExtractError reports a non-zero FFmpeg exit
type ExtractError struct {
	Tool     string
	ExitCode int
	Output   string
	Err      error
}

func (e *ExtractError) Error() string {
	detail := lastLines(e.Output, 3)
	if detail == "" {
		return fmt.Sprintf("FFmpeg exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("FFmpeg exited with code %d: %s", e.ExitCode, detail)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// commandRunner abstracts process execution for testability
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Extractor pulls the audio track out of a video container with FFmpeg
type Extractor struct {
	configured []string
	getenv     func(string) string
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	remove     func(string) error
	runner     commandRunner
}

// NewExtractor creates an extractor. configuredPath and fallbacks are only
// consulted after the FFMPEG_PATH override and the system PATH.
func NewExtractor(configuredPath string, fallbacks []string) *Extractor {
	var candidates []string
	if p := strings.TrimSpace(configuredPath); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, fallbacks...)

	return &Extractor{
		configured: candidates,
		getenv:     os.Getenv,
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		remove:     os.Remove,
		runner:     execRunner{},
	}
}

// Resolve locates the FFmpeg binary: FFMPEG_PATH, then PATH, then the
// configured locations. Failure is final.
func (e *Extractor) Resolve() (string, error) {
	if p := strings.TrimSpace(e.getenv(EnvFFmpegPath)); p != "" {
		if e.isFile(p) {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s=%s does not exist", ErrFFmpegNotFound, EnvFFmpegPath, p)
	}

	if p, err := e.lookPath("ffmpeg"); err == nil {
		return p, nil
	}

	for _, p := range e.configured {
		if e.isFile(p) {
			return p, nil
		}
	}

	checked := append([]string{"$" + EnvFFmpegPath, "$PATH"}, e.configured...)
	return "", fmt.Errorf("%w (checked %s)", ErrFFmpegNotFound, strings.Join(checked, ", "))
}

func (e *Extractor) isFile(path string) bool {
	info, err := e.stat(path)
	return err == nil && !info.IsDir()
}

// Extract converts videoPath into a 44.1kHz stereo WAV next to it and
// returns the output path. The input is never modified.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	ffmpeg, err := e.Resolve()
	if err != nil {
		return "", err
	}

	outputPath := AudioPath(videoPath)
	args := BuildArgs(videoPath, outputPath)

	output, err := e.runner.Run(ctx, ffmpeg, args...)
	if err != nil {
		e.removePartial(outputPath)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &ExtractError{
			Tool:     ffmpeg,
			ExitCode: exitCode,
			Output:   string(output),
			Err:      err,
		}
	}

	if !e.isFile(outputPath) {
		return "", fmt.Errorf("FFmpeg completed but audio output is missing: %s", outputPath)
	}

	log.Printf("Audio extracted successfully using %s: %s", ffmpeg, filepath.Base(outputPath))
	return outputPath, nil
}

// Version runs `ffmpeg -version` and returns the resolved path and the
// first line of output.
func (e *Extractor) Version(ctx context.Context) (string, string, error) {
	ffmpeg, err := e.Resolve()
	if err != nil {
		return "", "", err
	}

	output, err := e.runner.Run(ctx, ffmpeg, "-version")
	if err != nil {
		return ffmpeg, "", fmt.Errorf("FFmpeg at %s failed to report version: %w", ffmpeg, err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return ffmpeg, strings.TrimSpace(line), nil
}

func (e *Extractor) removePartial(path string) {
	if err := e.remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove partial audio %s: %v", path, err)
	}
}

// AudioPath is the sibling WAV path sharing the video's base name
func AudioPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".wav"
}

// BuildArgs returns the FFmpeg arguments for audio extraction
func BuildArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-ab", "160k", // bitrate
		"-ac", "2", // stereo
		"-ar", "44100", // sample rate
		"-vn", // drop video
		outputPath,
		"-y",
	}
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " | ")
}

// NewExtractorForTests constructs an extractor with injectable dependencies
func NewExtractorForTests(
	configured []string,
	getenv func(string) string,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	runner commandRunner,
) *Extractor {
	return &Extractor{
		configured: configured,
		getenv:     getenv,
		lookPath:   lookPath,
		stat:       stat,
		remove:     os.Remove,
		runner:     runner,
	}
}
