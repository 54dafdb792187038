package handlers

import (
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/video-transcription/internal/events"
	"github.com/codebuildervaibhav/video-transcription/internal/queue"
	"github.com/codebuildervaibhav/video-transcription/internal/storage"
	"github.com/codebuildervaibhav/video-transcription/internal/types"
)

// FormField is the multipart field carrying the uploaded videos
const FormField = "files[]"

// Processor runs one job to completion
type Processor interface {
	Process(job *queue.Job) error
}

// ScratchTracker is told which upload dir entries belong to requests that
// are still running
type ScratchTracker interface {
	Acquire(name string)
	Release(name string)
}

// UploadHandler handles batch video uploads
type UploadHandler struct {
	processor Processor
	events    queue.Publisher
	scratch   ScratchTracker
	uploadDir string
	allowed   map[string]bool
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler. Extensions are matched
// case-insensitively, with or without a leading dot. scratch may be nil.
func NewUploadHandler(processor Processor, publisher queue.Publisher, scratch ScratchTracker, uploadDir string, allowedExtensions []string, maxSizeMB int) *UploadHandler {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &UploadHandler{
		processor: processor,
		events:    publisher,
		scratch:   scratch,
		uploadDir: uploadDir,
		allowed:   allowed,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes every uploaded file in order and responds once all of
// them have finished
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File[FormField]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files uploaded",
		})
	}
	files := form.File[FormField]

	requestID := c.FormValue("request_id")
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.New().String()
	}

	// scratch space is always namespaced by a server-generated id
	scratchName := uuid.New().String()
	requestDir := filepath.Join(h.uploadDir, scratchName)
	if h.scratch != nil {
		h.scratch.Acquire(scratchName)
		defer h.scratch.Release(scratchName)
	}
	if err := os.MkdirAll(requestDir, 0755); err != nil {
		log.Printf("Failed to create request directory: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to prepare upload directory",
		})
	}
	defer func() {
		if err := os.RemoveAll(requestDir); err != nil {
			log.Printf("Failed to remove request directory %s: %v", requestDir, err)
		}
	}()

	log.Printf("Batch %s: %d file(s) received", requestID, len(files))

	results := make([]types.FileResult, 0, len(files))
	for _, file := range files {
		if !h.allowedFile(file.Filename) {
			log.Printf("Batch %s: skipping %q (unsupported extension)", requestID, file.Filename)
			continue
		}
		results = append(results, h.processFile(c, requestID, requestDir, file))
	}

	return c.JSON(types.BatchResponse{
		RequestID: requestID,
		Results:   results,
	})
}

func (h *UploadHandler) processFile(c *fiber.Ctx, requestID, requestDir string, file *multipart.FileHeader) types.FileResult {
	filename := storage.SanitizeFilename(file.Filename)
	h.publish(requestID, filename, types.StageReceived, "")

	fail := func(msg string) types.FileResult {
		h.publish(requestID, filename, types.StageFailed, msg)
		return types.FileResult{
			Filename: filename,
			Status:   types.StatusError,
			Message:  msg,
		}
	}

	if h.maxSizeMB > 0 && file.Size > int64(h.maxSizeMB)*1024*1024 {
		return fail(fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB))
	}
	h.publish(requestID, filename, types.StageValidated, "")

	videoPath := filepath.Join(requestDir, filename)
	if err := c.SaveFile(file, videoPath); err != nil {
		log.Printf("Failed to save uploaded file %s: %v", filename, err)
		os.Remove(videoPath)
		return fail(fmt.Sprintf("Failed to save file: %v", err))
	}
	h.publish(requestID, filename, types.StageSaved, "")

	job := queue.NewJob(requestID, filename, videoPath)
	if err := h.processor.Process(job); err != nil {
		os.Remove(videoPath)
		return fail(err.Error())
	}
	return job.FileResult()
}

func (h *UploadHandler) allowedFile(filename string) bool {
	ext := filepath.Ext(filename)
	if ext == "" {
		return false
	}
	return h.allowed[strings.ToLower(ext[1:])]
}

func (h *UploadHandler) publish(requestID, filename, stage, message string) {
	if h.events == nil {
		return
	}
	h.events.Publish(events.Event{
		RequestID: requestID,
		Filename:  filename,
		Stage:     stage,
		Message:   message,
	})
}
