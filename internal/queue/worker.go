package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"

	"github.com/codebuildervaibhav/video-transcription/internal/events"
	"github.com/codebuildervaibhav/video-transcription/internal/storage"
	"github.com/codebuildervaibhav/video-transcription/internal/transcription"
	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

// ErrPoolStopped is returned when submitting to a stopped pool
var ErrPoolStopped = errors.New("worker pool is stopped")

// AudioExtractor produces an audio file from a video file
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// ArtifactWriter renders a transcription to the output directory
type ArtifactWriter interface {
	SaveArtifacts(baseName string, result *types.TranscriptionResult) (storage.Artifacts, error)
	OutputDir() string
}

// Manifest records which artifact files were produced
type Manifest interface {
	RecordArtifacts(artifacts storage.Artifacts, sourceFilename, sourceHash, language string, segmentCount int, duration float64) error
}

// Mirror copies written artifacts to remote storage
type Mirror interface {
	Mirror(ctx context.Context, dir string, artifacts storage.Artifacts) (string, error)
}

// Publisher receives stage transitions
type Publisher interface {
	Publish(event events.Event) events.Event
}

// Components are the pipeline stages a pool drives. Manifest, Mirror and
// Events are optional.
type Components struct {
	Extractor   AudioExtractor
	Transcriber transcription.Transcriber
	Writer      ArtifactWriter
	Manifest    Manifest
	Mirror      Mirror
	Events      Publisher
}

// WorkerPool runs the per-file pipeline on a fixed number of workers
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	components  Components

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, components Components) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		components:  components,
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop lets queued jobs finish and waits for the workers to exit
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	log.Println("Worker pool stopped")
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job *Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}
	wp.jobQueue <- job
	return nil
}

// Process submits job and blocks until it has finished
func (wp *WorkerPool) Process(job *Job) error {
	if err := wp.Submit(job); err != nil {
		return err
	}
	<-job.Done()
	return nil
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer close(job.done)
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing %s: %v\n%s",
						id, job.Filename, r, string(debug.Stack()))
					wp.fail(job, fmt.Errorf("internal error: %v", r))
				}
			}()

			wp.processJob(id, job)
		}()
	}
}

// processJob handles the complete transcription pipeline. The uploaded
// video and the extracted audio are removed before it returns.
func (wp *WorkerPool) processJob(workerID int, job *Job) {
	ctx := context.Background()
	log.Printf("Worker %d: Processing %s (request %s)", workerID, job.Filename, job.RequestID)
	defer wp.cleanupTempFile(job.FilePath)

	hash, err := storage.HashFile(job.FilePath)
	if err != nil {
		log.Printf("Worker %d: could not hash %s: %v", workerID, job.Filename, err)
	}
	job.SourceHash = hash

	// Step 1: Extract audio
	wp.stage(job, types.StageExtracting, "")
	audioPath, err := wp.components.Extractor.Extract(ctx, job.FilePath)
	if err != nil {
		log.Printf("Worker %d: Audio extraction failed for %s: %v", workerID, job.Filename, err)
		wp.fail(job, fmt.Errorf("Failed to extract audio from video - check if FFmpeg is installed: %w", err))
		return
	}
	defer wp.cleanupTempFile(audioPath)

	// Step 2: Transcribe with Whisper
	wp.stage(job, types.StageTranscribing, "")
	result, err := wp.components.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		log.Printf("Worker %d: Transcription failed for %s: %v", workerID, job.Filename, err)
		wp.fail(job, err)
		return
	}

	// Step 3: Write artifacts
	wp.stage(job, types.StageWriting, "")
	artifacts, err := wp.components.Writer.SaveArtifacts(storage.BaseName(job.Filename), result)
	if err != nil {
		log.Printf("Worker %d: Saving artifacts failed for %s: %v", workerID, job.Filename, err)
		wp.fail(job, err)
		return
	}

	// Step 4: Record in manifest
	if wp.components.Manifest != nil {
		err = wp.components.Manifest.RecordArtifacts(artifacts, job.Filename, job.SourceHash,
			result.Language, len(result.Segments), result.Duration)
		if err != nil {
			log.Printf("Worker %d: Manifest update failed for %s: %v", workerID, job.Filename, err)
			wp.fail(job, err)
			return
		}
	}

	// Step 5: Mirror to Google Drive (best effort)
	if wp.components.Mirror != nil {
		if url, err := wp.components.Mirror.Mirror(ctx, wp.components.Writer.OutputDir(), artifacts); err != nil {
			log.Printf("Worker %d: WARNING - Google Drive upload failed for %s, artifacts are saved locally: %v",
				workerID, job.Filename, err)
		} else {
			log.Printf("Worker %d: Mirrored %s to %s", workerID, job.Filename, url)
		}
	}

	job.Result = result
	job.Artifacts = artifacts
	wp.stage(job, types.StageDone, "")
	log.Printf("Worker %d: %s completed successfully (%d segments, language %s)",
		workerID, job.Filename, len(result.Segments), result.Language)
}

func (wp *WorkerPool) fail(job *Job, err error) {
	job.Error = err
	wp.stage(job, types.StageFailed, err.Error())
}

func (wp *WorkerPool) stage(job *Job, stage, message string) {
	job.Stage = stage
	if wp.components.Events != nil {
		wp.components.Events.Publish(events.Event{
			RequestID: job.RequestID,
			Filename:  job.Filename,
			Stage:     stage,
			Message:   message,
		})
	}
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", filePath, err)
	}
}
