package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVideoStatusString(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.String())
	assert.Equal(t, "Processing", StatusProcessing.String())
	assert.Equal(t, "Done", StatusDone.String())
	assert.Equal(t, "Error", StatusError.String())
	assert.Equal(t, "Unknown", VideoStatus(0).String())
	assert.Equal(t, "Unknown", VideoStatus(99).String())
}

func TestVideoStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    VideoStatus
		to      VideoStatus
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to done", StatusPending, StatusDone, false},
		{"pending to error", StatusPending, StatusError, false},
		{"pending to pending", StatusPending, StatusPending, false},
		{"processing to done", StatusProcessing, StatusDone, true},
		{"processing to error", StatusProcessing, StatusError, true},
		{"processing to pending", StatusProcessing, StatusPending, false},
		{"done is terminal", StatusDone, StatusError, false},
		{"done cannot reprocess", StatusDone, StatusProcessing, false},
		{"error is terminal", StatusError, StatusDone, false},
		{"error cannot reprocess", StatusError, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}
