package pipeline

// JobKind selects the processing applied to a submitted chunk.
type JobKind string

const (
	JobRecognizeFace JobKind = "recognize_face"
	JobTranscribe    JobKind = "transcribe"
	JobFinalize      JobKind = "finalize_session"
)

// Job is one unit of asynchronous work for a session. Payload carries the
// decoded media bytes for chunk jobs; finalize jobs carry nothing.
type Job struct {
	Kind       JobKind
	Payload    []byte
	CapturedAt int64
}

// RecognizeFaceJob wraps a decoded video frame.
func RecognizeFaceJob(frame []byte, capturedAt int64) Job {
	return Job{Kind: JobRecognizeFace, Payload: frame, CapturedAt: capturedAt}
}

// TranscribeJob wraps a decoded audio fragment.
func TranscribeJob(audio []byte, capturedAt int64) Job {
	return Job{Kind: JobTranscribe, Payload: audio, CapturedAt: capturedAt}
}

// FinalizeJob requests end-of-call synthesis.
func FinalizeJob() Job {
	return Job{Kind: JobFinalize}
}
