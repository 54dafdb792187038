package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

// Transcriber turns an audio file into timed text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error)
}

// commandRunner abstracts process execution for testability
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// WhisperTranscriber wraps Python's OpenAI Whisper for transcription.
// The model holds mutable state, so calls are serialized.
type WhisperTranscriber struct {
	modelName string
	device    string
	language  string
	python    string
	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	readFile  func(name string) ([]byte, error)

	mu        sync.Mutex
	readyOnce sync.Once
	readyErr  error
}

// NewWhisperTranscriber creates a transcriber for one fixed model size and
// device. An empty language lets Whisper detect it.
func NewWhisperTranscriber(model, device, language, python string) *WhisperTranscriber {
	if python == "" {
		python = "python"
	}

	log.Printf("Initializing Python Whisper with model: %s (device: %s)", model, device)

	return &WhisperTranscriber{
		modelName: model,
		device:    device,
		language:  strings.TrimSpace(language),
		python:    python,
		runner:    execRunner{},
		mkdirTemp: os.MkdirTemp,
		readFile:  os.ReadFile,
	}
}

// Model returns the configured model size
func (wt *WhisperTranscriber) Model() string {
	return wt.modelName
}

// Ready verifies once that Whisper can be invoked. The outcome is cached
// for the life of the process and never re-checked.
func (wt *WhisperTranscriber) Ready(ctx context.Context) error {
	wt.readyOnce.Do(func() {
		output, err := wt.runner.Run(ctx, wt.python, "-m", "whisper", "--help")
		if err != nil {
			wt.readyErr = fmt.Errorf("whisper is not available via %s -m whisper: %v\nOutput: %s",
				wt.python, err, strings.TrimSpace(string(output)))
			log.Printf("Whisper readiness check failed: %v", wt.readyErr)
			return
		}
		log.Printf("Whisper ready (model: %s)", wt.modelName)
	})
	return wt.readyErr
}

// Transcribe processes an audio file and returns the transcript
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error) {
	if err := wt.Ready(ctx); err != nil {
		return nil, err
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()

	log.Printf("Transcribing with Python Whisper: %s", audioPath)

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	outputDir, err := wt.mkdirTemp(filepath.Dir(absAudioPath), "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create whisper output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	args := BuildWhisperArgs(absAudioPath, outputDir, wt.modelName, wt.device, wt.language)
	start := time.Now()

	output, err := wt.runner.Run(ctx, wt.python, args...)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %v\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	baseName := strings.TrimSuffix(filepath.Base(absAudioPath), filepath.Ext(absAudioPath))
	jsonData, err := wt.readFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	result, err := ParseOutput(jsonData)
	if err != nil {
		return nil, err
	}
	result.ProcessedAt = time.Now()

	log.Printf("Transcription completed: %d segments, %.2fs audio, language %s, took %s",
		len(result.Segments), result.Duration, result.Language, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// BuildWhisperArgs returns the `python -m whisper` arguments for JSON output
func BuildWhisperArgs(audioPath, outputDir, model, device, language string) []string {
	args := []string{"-m", "whisper",
		audioPath,
		"--model", model,
		"--device", device,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--verbose", "False",
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	if device == "cpu" {
		args = append(args, "--fp16", "False") // fp16 is unsupported on CPU
	}
	return args
}

// ParseOutput converts Whisper's JSON document into a TranscriptionResult.
// Segment times are clamped so that 0 <= start <= end.
func ParseOutput(data []byte) (*types.TranscriptionResult, error) {
	var whisperOutput WhisperOutput
	if err := json.Unmarshal(data, &whisperOutput); err != nil {
		return nil, fmt.Errorf("failed to parse whisper JSON: %w", err)
	}

	segments := make([]types.Segment, len(whisperOutput.Segments))
	for i, seg := range whisperOutput.Segments {
		start := max(seg.Start, 0)
		end := max(seg.End, start)
		segments[i] = types.Segment{
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(seg.Text),
		}
	}

	var duration float64
	if len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return &types.TranscriptionResult{
		Text:     strings.TrimSpace(whisperOutput.Text),
		Language: whisperOutput.Language,
		Duration: duration,
		Segments: segments,
	}, nil
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// NewWhisperTranscriberForTests constructs a transcriber with an injected runner
func NewWhisperTranscriberForTests(model, device, language string, runner commandRunner) *WhisperTranscriber {
	return &WhisperTranscriber{
		modelName: model,
		device:    device,
		language:  language,
		python:    "python",
		runner:    runner,
		mkdirTemp: os.MkdirTemp,
		readFile:  os.ReadFile,
	}
}
