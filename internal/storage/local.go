package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

// Artifact filename suffixes
const (
	SuffixTranscript     = "_transcript.txt"
	SuffixWithTimestamps = "_with_timestamps.txt"
	SuffixSubtitles      = ".srt"
)

// Artifacts names the three files written for one input
type Artifacts struct {
	Transcript     string
	WithTimestamps string
	Subtitles      string
}

// ArtifactNames returns the artifact filenames for a base name
func ArtifactNames(baseName string) Artifacts {
	return Artifacts{
		Transcript:     baseName + SuffixTranscript,
		WithTimestamps: baseName + SuffixWithTimestamps,
		Subtitles:      baseName + SuffixSubtitles,
	}
}

// Kinds pairs each artifact filename with its manifest kind
func (a Artifacts) Kinds() map[string]string {
	return map[string]string{
		a.Transcript:     types.ArtifactTranscript,
		a.WithTimestamps: types.ArtifactWithTimestamps,
		a.Subtitles:      types.ArtifactSubtitles,
	}
}

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
	}
}

// OutputDir returns the directory artifacts are written to
func (ls *LocalStorage) OutputDir() string {
	return ls.outputDir
}

// Path returns the on-disk path of an artifact filename
func (ls *LocalStorage) Path(filename string) string {
	return filepath.Join(ls.outputDir, filename)
}

// SaveArtifacts writes the plain, timestamped and subtitle renderings of
// result, replacing any earlier files with the same names.
func (ls *LocalStorage) SaveArtifacts(baseName string, result *types.TranscriptionResult) (Artifacts, error) {
	names := ArtifactNames(baseName)

	if err := os.MkdirAll(ls.outputDir, 0755); err != nil {
		return Artifacts{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name    string
		content []byte
	}{
		{names.WithTimestamps, RenderTimestamped(result.Segments)},
		{names.Transcript, RenderPlain(result.Text)},
		{names.Subtitles, RenderSRT(result.Segments)},
	}

	for _, f := range files {
		if err := os.WriteFile(ls.Path(f.name), f.content, 0644); err != nil {
			return Artifacts{}, fmt.Errorf("failed to save %s: %w", f.name, err)
		}
	}

	return names, nil
}

// RenderPlain is the full transcript without segment boundaries
func RenderPlain(text string) []byte {
	return []byte(strings.TrimSpace(text))
}

// RenderTimestamped writes one "[HH:MM:SS - HH:MM:SS] text" line per segment
func RenderTimestamped(segments []types.Segment) []byte {
	var buf bytes.Buffer
	for _, seg := range segments {
		buf.WriteString("[")
		buf.WriteString(FormatTimestamp(seg.Start))
		buf.WriteString(" - ")
		buf.WriteString(FormatTimestamp(seg.End))
		buf.WriteString("] ")
		buf.WriteString(strings.TrimSpace(seg.Text))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// RenderSRT writes numbered subtitle cues starting at 1
func RenderSRT(segments []types.Segment) []byte {
	var buf bytes.Buffer
	for i, seg := range segments {
		buf.WriteString(strconv.Itoa(i + 1))
		buf.WriteString("\n")
		buf.WriteString(FormatTimestampSRT(seg.Start))
		buf.WriteString(" --> ")
		buf.WriteString(FormatTimestampSRT(seg.End))
		buf.WriteString("\n")
		buf.WriteString(strings.TrimSpace(seg.Text))
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}
