//go:build integration

package webhook

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// GenerateID generates a unique event ID for testing
func GenerateID(t *testing.T, index int) string {
	t.Helper()
	return fmt.Sprintf("test-event-%d-%s", index, uuid.NewString())
}
