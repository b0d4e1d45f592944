package distributed

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// generateInstanceID creates a unique identifier for this application instance.
func generateInstanceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}

// gateKey and debounceKey derive the Redis keys a control coordinates on.
func gateKey(prefix string) string {
	return prefix + ":gate"
}

func debounceKey(prefix string) string {
	return prefix + ":debounce"
}
