package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(UnknownCode, "unknown code 123")

	if err.Code != UnknownCode {
		t.Errorf("Code = %v, want %v", err.Code, UnknownCode)
	}
	if err.Message != "unknown code 123" {
		t.Errorf("Message = %q, want %q", err.Message, "unknown code 123")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestCodelistError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *CodelistError
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       Wrap(CacheCorrupt, "graph cache unreadable", errors.New("unexpected EOF")),
			wantParts: []string{"CACHE_CORRUPT", "graph cache unreadable", "unexpected EOF"},
		},
		{
			name:      "without cause",
			err:       Newf(NotFound, "version %q not found", "v1"),
			wantParts: []string{"NOT_FOUND", `version "v1" not found`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestUnwrapAndCodeOf(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving draft: %w", Wrap(InternalError, "write failed", cause))

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable with errors.Is")
	}
	if got := CodeOf(err); got != InternalError {
		t.Errorf("CodeOf() = %q, want %q", got, InternalError)
	}
	if !IsCode(err, InternalError) {
		t.Error("IsCode should match through fmt.Errorf wrapping")
	}
	if IsCode(errors.New("plain"), InternalError) {
		t.Error("IsCode should not match plain errors")
	}
	if IsCode(nil, InternalError) {
		t.Error("IsCode should not match nil")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(UnknownNode, "not in graph").WithDetails([]string{"a", "b"})
	details, ok := err.Details.([]string)
	if !ok || len(details) != 2 {
		t.Errorf("Details = %#v, want two codes", err.Details)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(PreconditionFailed); len(fixes) == 0 {
		t.Error("expected fixes for PRECONDITION_FAILED")
	}
	if fixes := GetSuggestedFixes(NoDifference); fixes != nil {
		t.Errorf("expected no fixes for NO_DIFFERENCE, got %v", fixes)
	}
}
