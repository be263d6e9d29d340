package engine

import "context"

// BoundingBox locates a detected face within a frame.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// FaceDetection is one face found in a video frame, with its embedding.
type FaceDetection struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Embedding   []float64   `json:"embedding"`
	Confidence  float64     `json:"confidence"`
}

// FaceEngine extracts face regions and embeddings from a raw video frame.
type FaceEngine interface {
	DetectFaces(ctx context.Context, frame []byte) ([]FaceDetection, error)
}

// SpeechEngine transcribes an audio fragment. Implementations return an
// empty string rather than an error when transcription is simply
// unproductive; errors are reserved for transport failures.
type SpeechEngine interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopFaceEngine detects nothing. Used when no face engine is configured so
// the rest of the pipeline still runs.
type NoopFaceEngine struct{}

// DetectFaces returns no detections.
func (NoopFaceEngine) DetectFaces(context.Context, []byte) ([]FaceDetection, error) {
	return nil, nil
}

// NoopSpeechEngine transcribes everything to the empty string.
type NoopSpeechEngine struct{}

// Transcribe returns an empty transcription.
func (NoopSpeechEngine) Transcribe(context.Context, []byte) (string, error) {
	return "", nil
}
