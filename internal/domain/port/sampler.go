package port

import "context"

// FrameSampler derives an ordered set of still images from a video file.
// Implementations write the images into outputDir and return their paths
// in sampling order. An empty result is an error for the caller to raise.
type FrameSampler interface {
	SampleFrames(ctx context.Context, videoPath, outputDir string, count int) ([]string, error)
}
