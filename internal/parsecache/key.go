package parsecache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// Key identifies one parse: the file, its exact content and the compiler arguments used.
type Key struct {
	Path        string   `json:"path"`
	Fingerprint string   `json:"fingerprint"`
	Arguments   []string `json:"arguments"`
}

// Equal reports whether every component of k and o matches exactly. Argument order matters.
func (k Key) Equal(o Key) bool {
	return k.Path == o.Path && k.Fingerprint == o.Fingerprint && slices.Equal(k.Arguments, o.Arguments)
}

// String returns a digest of all key components.
func (k Key) String() string {
	h := sha256.New()
	// NUL separators keep ("ab","c") and ("a","bc") apart.
	h.Write([]byte(k.Path))
	h.Write([]byte{0})
	h.Write([]byte(k.Fingerprint))
	for _, a := range k.Arguments {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content fingerprint used in keys.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
