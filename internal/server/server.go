package server

import (
	_ "embed"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-transcription/internal/config"
	"github.com/codebuildervaibhav/video-transcription/internal/diagnostics"
	"github.com/codebuildervaibhav/video-transcription/internal/events"
	"github.com/codebuildervaibhav/video-transcription/internal/handlers"
	"github.com/codebuildervaibhav/video-transcription/internal/queue"
	"github.com/codebuildervaibhav/video-transcription/internal/storage"
)

// Version is reported by /health
const Version = "1.0.0"

//go:embed web/index.html
var indexHTML []byte

// ArtifactStore is the manifest as seen by the HTTP layer
type ArtifactStore interface {
	HasArtifact(filename string) (bool, error)
	ListArtifacts(limit int) ([]storage.ArtifactRecord, error)
}

// Deps holds the process-wide components. Everything is created once at
// startup and shared by all requests.
type Deps struct {
	Config      *config.Config
	Processor   handlers.Processor
	Events      *events.Bus
	Manifest    ArtifactStore
	Diagnostics *diagnostics.Checker
	Logs        *LogBuffer
	Scratch     handlers.ScratchTracker
}

// New builds the Fiber app with every route registered
func New(d Deps) *fiber.App {
	cfg := d.Config

	fiberCfg := fiber.Config{
		AppName: "video-transcription",
	}
	if cfg.Uploads.MaxFileSizeMB > 0 {
		// headroom for a batch of several files
		fiberCfg.BodyLimit = cfg.Uploads.MaxFileSizeMB * 1024 * 1024 * 16
	} else {
		fiberCfg.BodyLimit = 4 * 1024 * 1024 * 1024
	}
	app := fiber.New(fiberCfg)

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	var index handlers.ArtifactIndex
	if cfg.Download.ManifestOnly && d.Manifest != nil {
		index = d.Manifest
	}

	var publisher queue.Publisher
	if d.Events != nil {
		publisher = d.Events
	}

	uploadHandler := handlers.NewUploadHandler(d.Processor, publisher, d.Scratch,
		cfg.Storage.UploadDir, cfg.Uploads.AllowedExtensions, cfg.Uploads.MaxFileSizeMB)
	downloadHandler := handlers.NewDownloadHandler(cfg.Storage.OutputDir, index)

	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.Send(indexHTML)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": Version,
		})
	})

	app.Post("/transcribe", uploadHandler.Handle)
	app.Get("/download/:filename", downloadHandler.Handle)

	app.Get("/transcripts", func(c *fiber.Ctx) error {
		if d.Manifest == nil {
			return c.JSON([]storage.ArtifactRecord{})
		}
		limit, err := strconv.Atoi(c.Query("limit", "50"))
		if err != nil || limit <= 0 || limit > 500 {
			limit = 50
		}
		records, err := d.Manifest.ListArtifacts(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(records)
	})

	if d.Diagnostics != nil {
		app.Get("/diagnostics", func(c *fiber.Ctx) error {
			return c.JSON(d.Diagnostics.Run(c.UserContext()))
		})
	}

	if d.Logs != nil {
		app.Get("/logs", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"logs": d.Logs.GetLogs(),
			})
		})
	}

	if d.Events != nil {
		streamHandler := handlers.NewStreamHandler(d.Events)
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/progress", websocket.New(streamHandler.Handle))
	}

	return app
}
