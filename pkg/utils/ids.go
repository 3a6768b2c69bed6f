package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed unique identifier, e.g. "auction-6f1c...".
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
