package canonicalize

import (
	"fmt"
	"unicode/utf8"

	"github.com/latticerun/detcore/pkg/interfaces"
)

// Canonicalize converts a raw value into a canonical Artifact, detecting
// the content type and applying the matching canonicalization strategy.
// engine.ExecuteRun uses it to build a payload output's manifest preview;
// snapshots are written through pkg/snapshot instead.
func Canonicalize(schemaID string, raw interface{}) (*interfaces.Artifact, error) {
	var canonicalBytes []byte
	var contentType string
	var err error

	switch v := raw.(type) {
	case string:
		contentType = "text/plain"
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("canonicalize: invalid UTF-8 string")
		}
		canonicalBytes = []byte(v)
	case []byte:
		contentType = "application/octet-stream"
		canonicalBytes = v
	default:
		contentType = "application/json"
		canonicalBytes, err = EncodeCompact(v)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: failed to canonicalize as JSON: %w", err)
		}
	}

	digest := ComputeArtifactHash(canonicalBytes)
	preview := generatePreview(canonicalBytes)

	return &interfaces.Artifact{
		SchemaID:       schemaID,
		ContentType:    contentType,
		CanonicalBytes: canonicalBytes,
		Digest:         digest,
		Preview:        preview,
		Metadata:       make(map[string]string),
	}, nil
}

// ComputeArtifactHash returns the "sha256:"-prefixed digest of data. It is
// a thin alias of Hash, kept for the artifact-shaped callers that predate
// the general Hash/HashBytes naming.
func ComputeArtifactHash(data []byte) string {
	return Hash(data)
}

// generatePreview creates a deterministic, truncated preview of the content.
func generatePreview(data []byte) string {
	const maxPreviewLen = 50
	if len(data) <= maxPreviewLen {
		return string(data)
	}
	return string(data[:maxPreviewLen]) + "..."
}
