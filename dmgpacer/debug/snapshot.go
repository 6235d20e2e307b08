package debug

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

// EncodePNG writes buf to w as a 160x144 PNG.
func EncodePNG(w io.Writer, buf video.ScreenBuffer) error {
	if len(buf) < video.BufferSize {
		return fmt.Errorf("screen buffer too short: %d bytes", len(buf))
	}

	img := image.NewRGBA(image.Rect(0, 0, video.Width, video.Height))
	copy(img.Pix, buf)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// SaveFramePNGToDir saves buf as <baseName>_<timestamp>.png in directory,
// or in the working directory when directory is empty. Returns the path written.
func SaveFramePNGToDir(buf video.ScreenBuffer, baseName, directory string) (string, error) {
	outputDir := directory
	if outputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		outputDir = cwd
	}

	filename := fmt.Sprintf("%s_%s.png", baseName, time.Now().Format("20060102_150405.000"))
	filePath := filepath.Join(outputDir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	if err := EncodePNG(file, buf); err != nil {
		return "", err
	}

	slog.Info("Snapshot saved", "path", filePath, "size", fmt.Sprintf("%dx%d", video.Width, video.Height), "format", "PNG")
	return filePath, nil
}

// TakeSnapshot handles the snapshot key for interactive backends.
func TakeSnapshot(buf video.ScreenBuffer, seq uint64) {
	if seq == 0 {
		slog.Warn("No frame data available for snapshot")
		return
	}

	if _, err := SaveFramePNGToDir(buf, fmt.Sprintf("dmgpacer_snapshot_frame_%d", seq), ""); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}
