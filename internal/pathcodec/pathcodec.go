// Package pathcodec recovers document identifiers from the opaque
// base64-encoded storage paths the search backend attaches to every index
// entry. The encoding is inconsistently padded, so padding is restored
// before decoding.
package pathcodec

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Unknown is returned whenever a path cannot be decoded or does not carry
// a document identifier. Decode failures are absorbed on purpose: one
// malformed record must not abort a batch of retrieval results.
const Unknown = "unknown"

const marker = "/documents/"

// Decode returns the decoded UTF-8 storage path for an encoded one.
func Decode(encoded string) (string, bool) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", false
	}
	if m := len(encoded) % 4; m != 0 {
		encoded += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return "", false
		}
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// DocumentID extracts the path segment immediately following the
// "/documents/" marker, e.g. ".../documents/<id>/<filename>" yields <id>.
func DocumentID(encoded string) string {
	decoded, ok := Decode(encoded)
	if !ok {
		return Unknown
	}
	return DocumentIDFromPath(decoded)
}

// DocumentIDFromPath extracts the identifier from an already decoded path.
func DocumentIDFromPath(decoded string) string {
	_, rest, found := strings.Cut(decoded, marker)
	if !found {
		return Unknown
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return Unknown
	}
	return id
}
