package pipeline

// ClientInputError is a request the caller can fix: a bad reference or a video with no transcript
type ClientInputError struct {
	Message string
}

func (e *ClientInputError) Error() string {
	return e.Message
}

const (
	msgInvalidURL            = "Invalid YouTube URL"
	msgTranscriptUnavailable = "Transcript unavailable; the video may have captions disabled or be unsupported."
)
