package queue

import (
	"time"
	"unicode/utf8"

	"github.com/codebuildervaibhav/video-transcription/internal/storage"
	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

const previewLength = 200

// Job is the processing of one saved upload
type Job struct {
	RequestID  string
	Filename   string
	FilePath   string
	Stage      string
	Error      error
	Result     *types.TranscriptionResult
	Artifacts  storage.Artifacts
	SourceHash string
	CreatedAt  time.Time

	done chan struct{}
}

// NewJob creates a job for a file already saved at filePath
func NewJob(requestID, filename, filePath string) *Job {
	return &Job{
		RequestID: requestID,
		Filename:  filename,
		FilePath:  filePath,
		Stage:     types.StageSaved,
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed once the job has finished and its temp files are gone
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// FileResult converts a finished job into its batch result entry
func (j *Job) FileResult() types.FileResult {
	if j.Error != nil || j.Result == nil {
		msg := "processing did not complete"
		if j.Error != nil {
			msg = j.Error.Error()
		}
		return types.FileResult{
			Filename: j.Filename,
			Status:   types.StatusError,
			Message:  msg,
		}
	}

	return types.FileResult{
		Filename:          j.Filename,
		Status:            types.StatusSuccess,
		Transcript:        Preview(j.Result.Text),
		Language:          j.Result.Language,
		WithTimestamps:    j.Artifacts.WithTimestamps,
		WithoutTimestamps: j.Artifacts.Transcript,
		SRTFile:           j.Artifacts.Subtitles,
	}
}

// Preview shortens a transcript to 200 characters plus an ellipsis
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}
