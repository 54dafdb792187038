package handlers

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ArtifactIndex answers whether a filename was produced by the writer
type ArtifactIndex interface {
	HasArtifact(filename string) (bool, error)
}

// DownloadHandler serves written artifacts as attachments
type DownloadHandler struct {
	outputDir string
	index     ArtifactIndex
}

// NewDownloadHandler creates a download handler. With a nil index any
// file directly inside outputDir is servable.
func NewDownloadHandler(outputDir string, index ArtifactIndex) *DownloadHandler {
	return &DownloadHandler{
		outputDir: outputDir,
		index:     index,
	}
}

// Handle serves GET /download/:filename
func (h *DownloadHandler) Handle(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil || !isPlainFilename(name) {
		return notFound(c, c.Params("filename"))
	}

	if h.index != nil {
		ok, err := h.index.HasArtifact(name)
		if err != nil {
			log.Printf("Manifest lookup for %s failed: %v", name, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to look up artifact",
			})
		}
		if !ok {
			return notFound(c, name)
		}
	}

	path := filepath.Join(h.outputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return notFound(c, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return notFound(c, name)
	}

	c.Attachment(name)
	return c.SendStream(f, int(info.Size()))
}

// isPlainFilename rejects anything that is not a single path component
func isPlainFilename(name string) bool {
	return name != "" && name != "." && name != ".." &&
		filepath.Base(name) == name && filepath.Clean(name) == name &&
		!strings.ContainsAny(name, `/\`)
}

func notFound(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fmt.Sprintf("File not found: %s", name),
	})
}
