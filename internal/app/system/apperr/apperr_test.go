package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/chorehub/internal/app/system/apperr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "nil", err: nil, want: apperr.KindInternal},
		{name: "plain error", err: errors.New("boom"), want: apperr.KindInternal},
		{name: "validation", err: apperr.Validation("name is required"), want: apperr.KindValidation},
		{name: "wrapped conflict", err: fmt.Errorf("claim: %w", apperr.Conflict("taken")), want: apperr.KindConflict},
		{name: "external", err: apperr.External("llm", errors.New("timeout")), want: apperr.KindExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIs_MatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", apperr.FailedPrecondition("not enough gems"))
	if !errors.Is(err, apperr.ErrFailedPrecondition) {
		t.Error("expected errors.Is to match ErrFailedPrecondition")
	}
	if errors.Is(err, apperr.ErrConflict) {
		t.Error("did not expect errors.Is to match ErrConflict")
	}
}

func TestExternal_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.External("gem estimate failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}

func TestMessage(t *testing.T) {
	if got := apperr.Message(apperr.NotFound("Invalid or expired invite link"), "x"); got != "Invalid or expired invite link" {
		t.Errorf("Message = %q", got)
	}
	if got := apperr.Message(errors.New("db down"), "Something went wrong."); got != "Something went wrong." {
		t.Errorf("Message fallback = %q", got)
	}
}
