package stubservice

import (
	"crypto/sha1"
	"strings"
)

const (
	LabelAuthentic = "authentic"
	LabelForged    = "forged"
)

// Verdict decides the label for a decoded image.
type Verdict interface {
	Label(image []byte, mimeType string) string
}

// FixedVerdict answers the same label for every image.
type FixedVerdict string

// Label implements Verdict.
func (v FixedVerdict) Label([]byte, string) string {
	return string(v)
}

// HashVerdict labels an image from its SHA-1 so the same picture always gets the same answer.
type HashVerdict struct{}

// Label implements Verdict.
func (HashVerdict) Label(image []byte, _ string) string {
	sum := sha1.Sum(image)
	if sum[0]&1 == 1 {
		return LabelForged
	}
	return LabelAuthentic
}

// ParseVerdict maps a config value onto a Verdict: "hash" (or empty) for HashVerdict, anything
// else is used as a fixed label.
func ParseVerdict(value string) Verdict {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "hash") {
		return HashVerdict{}
	}
	return FixedVerdict(value)
}
