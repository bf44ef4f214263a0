package service

import (
	"fmt"

	"github.com/gosimple/slug"

	"rehearsal-hub/modules/rehearsal/entity"
)

// DeriveEventLabel builds the calendar event title for a rehearsal. Duplicate
// detection compares against exactly this label, so it must be a pure
// function of the rehearsal projection.
func DeriveEventLabel(r *entity.RehearsalWithProject) string {
	if r.Title != "" {
		return fmt.Sprintf("Rehearsal: %s - %s", r.ProjectName, r.Title)
	}
	return fmt.Sprintf("Rehearsal: %s", r.ProjectName)
}

// DeriveEventTag is written into the exported event's notes so an event can
// be recognized as ours even after local mapping loss.
func DeriveEventTag(r *entity.RehearsalWithProject) string {
	return "rehearsalhub:" + slug.Make(r.ProjectName)
}

// DeriveEventNotes combines the rehearsal description with the tag.
func DeriveEventNotes(r *entity.RehearsalWithProject) string {
	tag := DeriveEventTag(r)
	if r.Description != "" {
		return r.Description + "\n\n" + tag
	}
	return tag
}
