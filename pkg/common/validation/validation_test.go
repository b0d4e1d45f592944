package validation

import (
	"errors"
	"testing"
	"time"

	tperrors "github.com/vnykmshr/tempo/pkg/common/errors"
)

func TestValidateNonNegativeDuration(t *testing.T) {
	tests := []struct {
		name      string
		value     time.Duration
		wantError bool
	}{
		{"zero", 0, false},
		{"positive", 50 * time.Millisecond, false},
		{"negative", -time.Nanosecond, true},
		{"large negative", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegativeDuration("test", "delay", tt.value)
			if tt.wantError {
				if !tperrors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				if !errors.Is(err, tperrors.ErrInvalidArgument) {
					t.Error("expected error to wrap ErrInvalidArgument")
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration("test", "ttl", time.Second); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := ValidatePositiveDuration("test", "ttl", 0); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("test", "clock", struct{}{}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := ValidateNotNil("test", "clock", nil); err == nil {
		t.Error("expected error for nil value")
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("test", "key", "k"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := ValidateNotEmpty("test", "key", ""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestValidateOneOf(t *testing.T) {
	if err := ValidateOneOf("test", "policy", "basic", "basic", "leading-trailing"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := ValidateOneOf("test", "policy", "bogus", "basic", "leading-trailing")
	var verr *tperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Hint != "use one of: basic leading-trailing" {
		t.Errorf("Hint = %q", verr.Hint)
	}
}
