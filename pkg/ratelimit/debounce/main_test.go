package debounce

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// This catches timer goroutines left behind by debouncers.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
