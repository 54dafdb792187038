package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codebuildervaibhav/video-transcription/internal/cleanup"
	"github.com/codebuildervaibhav/video-transcription/internal/config"
	"github.com/codebuildervaibhav/video-transcription/internal/diagnostics"
	"github.com/codebuildervaibhav/video-transcription/internal/events"
	"github.com/codebuildervaibhav/video-transcription/internal/media"
	"github.com/codebuildervaibhav/video-transcription/internal/queue"
	"github.com/codebuildervaibhav/video-transcription/internal/server"
	"github.com/codebuildervaibhav/video-transcription/internal/storage"
	"github.com/codebuildervaibhav/video-transcription/internal/transcription"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Custom logger setup
	logBuffer := server.NewLogBuffer()
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ensure directories exist
	if err := cleanup.EnsureDirExists(cfg.Storage.UploadDir); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}
	if err := cleanup.EnsureDirExists(cfg.Storage.OutputDir); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.Println("Initializing components...")

	// FFmpeg
	extractor := media.NewExtractor(cfg.FFmpeg.Path, cfg.FFmpeg.FallbackPaths)
	if path, err := extractor.Resolve(); err != nil {
		log.Printf("WARNING: %v", err)
		log.Println("Uploads will fail until FFmpeg is installed or FFMPEG_PATH is set")
	} else {
		log.Printf("Using FFmpeg at %s", path)
	}

	// Whisper transcriber, checked once and shared by every request
	transcriber := transcription.NewWhisperTranscriber(
		cfg.Whisper.Model,
		cfg.Whisper.Device,
		cfg.Whisper.Language,
		cfg.Whisper.Python,
	)
	readyCtx, cancelReady := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := transcriber.Ready(readyCtx); err != nil {
		log.Printf("WARNING: Whisper not available: %v", err)
	} else {
		log.Printf("Whisper model %s on %s", cfg.Whisper.Model, cfg.Whisper.Device)
	}
	cancelReady()

	// Local storage
	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Artifact manifest
	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Google Drive client (optional - may fail if credentials not set up)
	var mirror queue.Mirror
	if cfg.GoogleDrive.CredentialsFile == "" {
		log.Println("Google Drive not configured - saving locally only")
	} else if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(
			context.Background(),
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Printf("WARNING: Google Drive not available: %v", err)
			log.Println("Transcripts will only be saved locally")
		} else {
			mirror = driveClient
			log.Println("Google Drive integration enabled")
		}
	} else {
		log.Println("Google Drive credentials not found - saving locally only")
	}

	bus := events.NewBus(1000)

	// Worker pool
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, queue.Components{
		Extractor:   extractor,
		Transcriber: transcriber,
		Writer:      localStorage,
		Manifest:    db,
		Mirror:      mirror,
		Events:      bus,
	})
	workerPool.Start()
	defer workerPool.Stop()

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.UploadDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := server.New(server.Deps{
		Config:      cfg,
		Processor:   workerPool,
		Events:      bus,
		Manifest:    db,
		Diagnostics: diagnostics.NewChecker(extractor, transcriber, cfg.Storage.UploadDir, cfg.Storage.OutputDir),
		Logs:        logBuffer,
		Scratch:     cleanupScheduler,
	})

	addr := cfg.Addr()
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   GET  /                     - Upload page")
	log.Println("   POST /transcribe           - Transcribe uploaded videos (files[])")
	log.Println("   GET  /download/:filename   - Download a transcript file")
	log.Println("   GET  /ws/progress          - WebSocket progress events")
	log.Println("   GET  /transcripts          - List written transcript files")
	log.Println("   GET  /diagnostics          - Check FFmpeg, Whisper and directories")
	log.Println("   GET  /logs                 - View server logs")
	log.Println("   GET  /health               - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
