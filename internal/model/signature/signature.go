package signature

import "time"

// Kind distinguishes the biometric source of a signature. Dimensionality is
// fixed per kind and never mixed.
type Kind string

const (
	KindFace  Kind = "face"
	KindVoice Kind = "voice"
)

const (
	faceDimensions  = 128
	voiceDimensions = 512
)

// DefaultDedupThreshold is the similarity above which a new vector is treated
// as a duplicate of an existing signature for the same identity.
const DefaultDedupThreshold = 0.95

// Dimensions returns the required vector length for the kind.
func (k Kind) Dimensions() int {
	switch k {
	case KindVoice:
		return voiceDimensions
	default:
		return faceDimensions
	}
}

// Signature is one biometric reference vector bound to an identity. It is
// immutable once created; recognition quality improves by adding more
// signatures, never by editing existing ones.
type Signature struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identityId"`
	Kind       Kind      `json:"kind"`
	Vector     []float64 `json:"vector"`
	SourceRef  string    `json:"sourceRef,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}
