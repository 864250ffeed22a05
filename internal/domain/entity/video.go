package entity

import "time"

// VideoStatus mirrors the integer status column of cliptozip.videos.
type VideoStatus int

const (
	StatusPending    VideoStatus = 1
	StatusProcessing VideoStatus = 2
	StatusDone       VideoStatus = 3
	StatusError      VideoStatus = 4
)

func (s VideoStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusProcessing:
		return "Processing"
	case StatusDone:
		return "Done"
	case StatusError:
		return "Error"
	}
	return "Unknown"
}

// CanTransitionTo reports whether s -> next is a permitted transition.
// The only legal paths are Pending -> Processing -> {Done, Error};
// terminal states have no outgoing transitions.
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusDone || next == StatusError
	}
	return false
}

// Video is the persistent record for one processing request. The worker
// only reads it and compare-and-swaps the status column; the row itself
// is owned by the upload service.
type Video struct {
	ID          string
	UserID      string
	UploadedAt  time.Time
	Status      VideoStatus
	VideoName   string
	ZipName     string // set only when Status is Done
	Description string
	Title       string
	Metadata    map[string]any
}
