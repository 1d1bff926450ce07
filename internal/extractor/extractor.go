package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractFrames extracts JPEG frames from a video file every interval seconds
// and returns their paths in frame order. Existing frames are reused.
func ExtractFrames(ctx context.Context, videoPath, outputDir string, interval int, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %d", interval)
	}

	// Check if video file exists
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}

	// Create a subfolder with the video's name
	videoName := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	frameDirPath := filepath.Join(outputDir, videoName)

	if frames, err := ListFrames(frameDirPath); err == nil && len(frames) > 0 {
		logger.Info("frames already extracted", "dir", frameDirPath, "frames", len(frames))
		return frames, nil
	}

	if err := os.MkdirAll(frameDirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory '%s': %w", frameDirPath, err)
	}

	logger.Info("extracting frames", "video", videoPath, "dir", frameDirPath, "interval", interval)

	ffmpegCommand := exec.CommandContext(ctx,
		"ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%d", interval),
		filepath.Join(frameDirPath, "frame_%04d.jpg"),
	)

	// Capture output for better error reporting
	output, err := ffmpegCommand.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(output))
	}

	frames, err := ListFrames(frameDirPath)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from '%s'", videoPath)
	}
	logger.Info("extracted frames", "dir", frameDirPath, "frames", len(frames))
	return frames, nil
}

// ListFrames returns the sorted JPEG paths in dir
func ListFrames(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory '%s': %w", dir, err)
	}

	var frames []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(strings.ToLower(file.Name()), ".jpg") {
			frames = append(frames, filepath.Join(dir, file.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}
