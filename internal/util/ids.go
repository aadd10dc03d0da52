package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewID returns a 21 character nanoid used for jobs and runs.
func NewID() (string, error) {
	return gonanoid.New()
}

// IsNanoid reports whether s looks like an id returned by NewID.
func IsNanoid(s string) bool {
	if len(s) != 21 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNanoidChar(s[i]) {
			return false
		}
	}
	return true
}

func isNanoidChar(c byte) bool {
	return (c >= '0' && c <= '9') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		c == '_' || c == '-'
}
