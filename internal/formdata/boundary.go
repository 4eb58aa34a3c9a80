package formdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BoundaryPrefix starts every generated boundary.
const BoundaryPrefix = "----VitalArborBoundary"

const maxBoundaryLength = 70

// NewBoundary returns BoundaryPrefix followed by the current Unix time in
// milliseconds and 32 random hex digits.
func NewBoundary() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return BoundaryPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + random
}

// ValidateBoundary checks RFC 2046 boundary syntax.
func ValidateBoundary(boundary string) error {
	if boundary == "" || len(boundary) > maxBoundaryLength {
		return fmt.Errorf("boundary length must be between 1 and %d", maxBoundaryLength)
	}
	if strings.HasSuffix(boundary, " ") {
		return fmt.Errorf("boundary must not end with a space")
	}
	for _, r := range boundary {
		if !isBoundaryChar(r) {
			return fmt.Errorf("boundary contains invalid character %q", r)
		}
	}
	return nil
}

// isBoundaryChar reports membership in the RFC 2046 bchars set.
func isBoundaryChar(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return strings.ContainsRune("'()+_,-./:=? ", r)
}
