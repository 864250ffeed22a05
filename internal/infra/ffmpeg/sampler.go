package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrNoFrames is returned when not a single position could be read.
var ErrNoFrames = errors.New("no frames could be sampled")

// Sampler extracts evenly spaced still frames from a video using the
// ffmpeg/ffprobe binaries.
type Sampler struct {
	format string
	logger *zap.Logger
}

func NewSampler(format string, logger *zap.Logger) *Sampler {
	return &Sampler{format: format, logger: logger}
}

// SamplePositions returns count frame indexes spread evenly over total
// frames, first and last inclusive. count is reduced to total when the
// video is shorter than requested; a single sample lands on the midpoint.
// Results are clamped to [0, total-1].
func SamplePositions(total, count int) []int {
	if total <= 0 || count <= 0 {
		return nil
	}
	if count > total {
		count = total
	}
	if count == 1 {
		return []int{total / 2}
	}

	step := float64(total-1) / float64(count-1)
	positions := make([]int, count)
	for i := range positions {
		p := int(math.Round(float64(i) * step))
		if p > total-1 {
			p = total - 1
		}
		positions[i] = p
	}
	return positions
}

func (s *Sampler) SampleFrames(ctx context.Context, videoPath, outputDir string, count int) ([]string, error) {
	total, err := s.countFrames(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("count frames: %w", err)
	}
	if total == 0 {
		return nil, ErrNoFrames
	}

	positions := SamplePositions(total, count)
	s.logger.Info("sampling frames",
		zap.Int("total_frames", total),
		zap.Ints("positions", positions),
	)

	var paths []string
	for i, pos := range positions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.%s", i+1, s.format))
		if err := s.extractFrame(ctx, videoPath, pos, outPath); err != nil {
			// An unreadable position is skipped, not retried.
			s.logger.Warn("could not read frame, skipping",
				zap.Int("position", pos),
				zap.Error(err),
			)
			continue
		}
		paths = append(paths, outPath)
	}

	if len(paths) == 0 {
		return nil, ErrNoFrames
	}

	s.logger.Info("frames sampled", zap.Int("count", len(paths)))
	return paths, nil
}

func (s *Sampler) extractFrame(ctx context.Context, videoPath string, position int, outPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", position),
		"-vsync", "vfr",
		"-frames:v", "1",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w, output: %s", err, string(output))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame not written: %w", err)
	}
	return nil
}

func (s *Sampler) countFrames(ctx context.Context, videoPath string) (int, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	total, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		return 0, fmt.Errorf("parse frame count: %w", err)
	}
	return total, nil
}
