package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "IVU/"
	// Work is the main worker pool queue
	Work = st + "Work"
	// Status is the status change notification queue
	Status = st + "Status"
)

// Job types within a queue
const (
	// JobTranscribe starts the transcription pipeline for one video response
	JobTranscribe = "transcribe"
	// JobStatusChange informs subscribers about session changes
	JobStatusChange = "status-change"
)

// Status change events
const (
	// EventTranscript - a transcript row was persisted
	EventTranscript = "transcript"
	// EventScore - a new score snapshot was persisted
	EventScore = "score"
)

// TranscribeMessage dispatches background transcription, ID is the video response id
type TranscribeMessage struct {
	amessages.QueueMessage
	SessionID  string `json:"sessionID"`
	QuestionID string `json:"questionID"`
}

// StatusMessage informs about session progress change, ID is the session id
type StatusMessage struct {
	amessages.QueueMessage
	Event      string `json:"event"`
	QuestionID string `json:"questionID,omitempty"`
}
