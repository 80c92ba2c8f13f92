package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestSessionStatusTerminal(t *testing.T) {
	if SessionStatusInProgress.Terminal() {
		t.Error("in_progress must not be terminal")
	}
	for _, s := range []SessionStatus{SessionStatusCompleted, SessionStatusAbandoned, SessionStatusExpired} {
		if !s.Terminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestSetFlagIdempotent(t *testing.T) {
	m := SessionMetadata{}
	id := uuid.New()

	m.SetFlag(id, true)
	m.SetFlag(id, true)
	if len(m.FlaggedQuestionIDs) != 1 {
		t.Fatalf("got %d flagged ids, want 1", len(m.FlaggedQuestionIDs))
	}

	m.SetFlag(id, false)
	m.SetFlag(id, false)
	if len(m.FlaggedQuestionIDs) != 0 {
		t.Fatalf("got %d flagged ids, want 0", len(m.FlaggedQuestionIDs))
	}
}

func TestSetBookmarkIndependentOfFlag(t *testing.T) {
	m := SessionMetadata{}
	id := uuid.New()

	m.SetFlag(id, true)
	m.SetBookmark(id, true)
	m.SetFlag(id, false)

	if len(m.BookmarkedQuestionIDs) != 1 {
		t.Error("unsetting the flag must not touch bookmarks")
	}
}

func TestSetBookmarkPreservesOthers(t *testing.T) {
	m := SessionMetadata{}
	a, b := uuid.New(), uuid.New()

	m.SetBookmark(a, true)
	m.SetBookmark(b, true)
	m.SetBookmark(a, false)

	if len(m.BookmarkedQuestionIDs) != 1 || m.BookmarkedQuestionIDs[0] != b {
		t.Errorf("bookmarks = %v, want only %s", m.BookmarkedQuestionIDs, b)
	}
}

func TestAdvanceAllowsBackwards(t *testing.T) {
	m := SessionMetadata{}
	m.Advance(5)
	m.Advance(2)
	if m.CurrentQuestionIndex != 2 {
		t.Errorf("index = %d, want 2", m.CurrentQuestionIndex)
	}
}

func TestSetRemainingDecreaseOnly(t *testing.T) {
	m := SessionMetadata{}

	if !m.SetRemaining(600) {
		t.Fatal("first countdown must be accepted")
	}
	if !m.SetRemaining(540) {
		t.Fatal("decrease must be accepted")
	}
	if m.SetRemaining(700) {
		t.Fatal("increase must be rejected")
	}
	if *m.RemainingSeconds != 540 {
		t.Errorf("remaining = %d, want 540 after rejected increase", *m.RemainingSeconds)
	}
	if m.SetRemaining(-1) {
		t.Fatal("negative countdown must be rejected")
	}
	if !m.SetRemaining(540) {
		t.Fatal("equal value must be accepted")
	}
	if !m.SetRemaining(0) {
		t.Fatal("zero must be accepted")
	}
}
