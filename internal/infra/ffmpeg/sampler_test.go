package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplePositions(t *testing.T) {
	tests := []struct {
		name  string
		total int
		count int
		want  []int
	}{
		{"four of a hundred", 100, 4, []int{0, 33, 66, 99}},
		{"two of a hundred", 100, 2, []int{0, 99}},
		{"single frame is the middle", 100, 1, []int{50}},
		{"single of odd total", 7, 1, []int{3}},
		{"count equals total", 4, 4, []int{0, 1, 2, 3}},
		{"count above total reduces", 2, 4, []int{0, 1}},
		{"one-frame video", 1, 4, []int{0}},
		{"three of ten", 10, 3, []int{0, 5, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SamplePositions(tt.total, tt.count))
		})
	}
}

func TestSamplePositionsDegenerate(t *testing.T) {
	assert.Nil(t, SamplePositions(0, 4))
	assert.Nil(t, SamplePositions(-1, 4))
	assert.Nil(t, SamplePositions(10, 0))
	assert.Nil(t, SamplePositions(10, -2))
}

func TestSamplePositionsBounds(t *testing.T) {
	// Every position must index into [0, total) and be strictly increasing.
	for _, total := range []int{1, 2, 3, 17, 100, 2400} {
		for _, count := range []int{1, 2, 4, 10} {
			positions := SamplePositions(total, count)
			prev := -1
			for _, p := range positions {
				assert.GreaterOrEqual(t, p, 0)
				assert.Less(t, p, total)
				assert.Greater(t, p, prev)
				prev = p
			}
		}
	}
}
