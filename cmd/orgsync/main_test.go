package main

import (
	"errors"
	"testing"

	"github.com/crmarques/orgsync/faults"
)

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	if got := exitCodeForError(faults.NewTypedError(faults.CorruptStateError, "bad state", nil)); got != 8 {
		t.Fatalf("exitCodeForError() = %d, want 8", got)
	}
	if got := exitCodeForError(errors.New("sync finished with 1 failure(s)")); got != 1 {
		t.Fatalf("exitCodeForError() = %d, want 1", got)
	}
}
