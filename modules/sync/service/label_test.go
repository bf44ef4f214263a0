package service

import (
	"strings"
	"testing"

	"rehearsal-hub/modules/rehearsal/entity"
)

func TestDeriveEventLabel(t *testing.T) {
	withTitle := &entity.RehearsalWithProject{ProjectName: "Hamlet", Title: "Act II run-through"}
	if got := DeriveEventLabel(withTitle); got != "Rehearsal: Hamlet - Act II run-through" {
		t.Errorf("got %q", got)
	}

	withoutTitle := &entity.RehearsalWithProject{ProjectName: "Hamlet"}
	if got := DeriveEventLabel(withoutTitle); got != "Rehearsal: Hamlet" {
		t.Errorf("got %q", got)
	}
}

func TestDeriveEventTagIsSlugged(t *testing.T) {
	r := &entity.RehearsalWithProject{ProjectName: "A Midsummer Night's Dream"}
	tag := DeriveEventTag(r)
	if !strings.HasPrefix(tag, "rehearsalhub:") {
		t.Fatalf("tag %q lacks prefix", tag)
	}
	if strings.ContainsAny(tag, " '") {
		t.Errorf("tag %q not slugged", tag)
	}
}

func TestDeriveEventNotesKeepsDescription(t *testing.T) {
	r := &entity.RehearsalWithProject{ProjectName: "Hamlet", Description: "Bring scripts."}
	notes := DeriveEventNotes(r)
	if !strings.HasPrefix(notes, "Bring scripts.") {
		t.Errorf("notes %q lost the description", notes)
	}
	if !strings.Contains(notes, DeriveEventTag(r)) {
		t.Errorf("notes %q lost the tag", notes)
	}
}
