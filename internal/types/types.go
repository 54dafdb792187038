package types

import "time"

// Per-file result status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Processing stages reported for each uploaded file
const (
	StageReceived     = "received"
	StageValidated    = "validated"
	StageSaved        = "saved"
	StageExtracting   = "extracting"
	StageTranscribing = "transcribing"
	StageWriting      = "writing"
	StageDone         = "done"
	StageFailed       = "failed"
)

// Artifact kinds recorded in the manifest
const (
	ArtifactTranscript     = "transcript"
	ArtifactWithTimestamps = "with_timestamps"
	ArtifactSubtitles      = "srt"
)

// TranscriptionResult represents the output from Whisper
type TranscriptionResult struct {
	Text        string
	Language    string
	Duration    float64
	Segments    []Segment
	ProcessedAt time.Time
}

// Segment represents a timestamped segment of transcription
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FileResult is the per-file entry returned from a batch request
type FileResult struct {
	Filename          string `json:"filename"`
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
	Transcript        string `json:"transcript,omitempty"`
	Language          string `json:"language,omitempty"`
	WithTimestamps    string `json:"with_timestamps,omitempty"`
	WithoutTimestamps string `json:"without_timestamps,omitempty"`
	SRTFile           string `json:"srt_file,omitempty"`
}

// BatchResponse is the body of a completed batch request
type BatchResponse struct {
	RequestID string       `json:"request_id"`
	Results   []FileResult `json:"results"`
}
