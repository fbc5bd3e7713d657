package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock is the single source of "now".
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// LinkGenerator returns a fresh meeting link.
type LinkGenerator func() string

// NewLinkGenerator builds links of the form <base>/sgh-<uuid>.
func NewLinkGenerator(base string) LinkGenerator {
	base = strings.TrimRight(base, "/")
	return func() string {
		return base + "/sgh-" + uuid.NewString()
	}
}
