package util

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier, e.g. "vid_9f1c...".
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}
