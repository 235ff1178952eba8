// Package star defines the celestial-object claim recorded on the ledger.
package star

import (
	"errors"
	"fmt"
	"strings"
)

// MaxStoryBytes is the longest story a claim may carry.
const MaxStoryBytes = 500

// Validation errors.
var (
	ErrEmptyStar    = errors.New("star has no fields set")
	ErrStoryTooLong = errors.New("star story too long")
)

// Star is a claim on a celestial object, usually identified by its right
// ascension and declination. Every field is optional but at least one must
// be set; a story alone is a valid claim.
type Star struct {
	RA    string `json:"ra"`
	Dec   string `json:"dec"`
	Mag   string `json:"mag,omitempty"`
	Cen   string `json:"cen,omitempty"`
	Story string `json:"story"`
}

// Validate checks that the claim is well formed.
func (s *Star) Validate() error {
	if blank(s.RA) && blank(s.Dec) && blank(s.Mag) && blank(s.Cen) && blank(s.Story) {
		return ErrEmptyStar
	}
	if len(s.Story) > MaxStoryBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrStoryTooLong, len(s.Story), MaxStoryBytes)
	}
	return nil
}

// Coordinates returns a short "ra/dec" label for logs.
func (s *Star) Coordinates() string {
	return s.RA + "/" + s.Dec
}

func blank(v string) bool {
	return strings.TrimSpace(v) == ""
}
