package keyed

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// This catches sweeper goroutines left running after Stop.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
