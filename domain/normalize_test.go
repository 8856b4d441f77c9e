package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bytedance/sonic"
)

func TestDraftNormalizeTrimsAndDefaults(t *testing.T) {
	d := Draft{Title: "  Trip  ", Desc: " Plan the trip "}
	if err := d.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if d.Title != "Trip" || d.Description != "Plan the trip" {
		t.Fatalf("unexpected draft after normalize: %+v", d)
	}
	if d.Priority != PriorityMedium {
		t.Fatalf("expected medium default, got %q", d.Priority)
	}
	if len(d.Tags) != 0 {
		t.Fatalf("expected no tags, got %v", d.Tags)
	}
}

func TestDraftNormalizeRejectsEmptyFields(t *testing.T) {
	for _, d := range []Draft{
		{Title: "   ", Description: "body"},
		{Title: "t", Description: "  "},
		{},
	} {
		err := d.Normalize()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("draft %+v: expected validation error, got %v", d, err)
		}
	}
}

func TestDraftNormalizeRejectsUnknownPriority(t *testing.T) {
	d := Draft{Title: "t", Description: "d", Priority: "urgent"}
	var verr *ValidationError
	if err := d.Normalize(); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTagListUnmarshalArrayAndString(t *testing.T) {
	var fromArray TagList
	if err := sonic.Unmarshal([]byte(`[" travel ", "", "fun"]`), &fromArray); err != nil {
		t.Fatalf("array unmarshal: %v", err)
	}
	if !reflect.DeepEqual([]string(fromArray), []string{"travel", "fun"}) {
		t.Fatalf("unexpected tags from array: %v", fromArray)
	}

	var fromString TagList
	if err := sonic.Unmarshal([]byte(`"travel, fun, ,"`), &fromString); err != nil {
		t.Fatalf("string unmarshal: %v", err)
	}
	if !reflect.DeepEqual([]string(fromString), []string{"travel", "fun"}) {
		t.Fatalf("unexpected tags from string: %v", fromString)
	}

	var bad TagList
	if err := sonic.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Fatal("expected error for numeric tags")
	}
}

func TestTagListKeepsOrderAndDuplicates(t *testing.T) {
	var tags TagList
	if err := sonic.Unmarshal([]byte(`"b, a, b"`), &tags); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual([]string(tags), []string{"b", "a", "b"}) {
		t.Fatalf("expected order and duplicates preserved, got %v", tags)
	}
}

func TestDraftDecodeDescAlias(t *testing.T) {
	var d Draft
	if err := sonic.Unmarshal([]byte(`{"title":"Trip","desc":"Plan the trip","tags":"travel, fun"}`), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := d.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if d.Description != "Plan the trip" {
		t.Fatalf("desc alias not resolved: %+v", d)
	}
	if !reflect.DeepEqual([]string(d.Tags), []string{"travel", "fun"}) {
		t.Fatalf("unexpected tags: %v", d.Tags)
	}
}

func TestPatchNormalizeValidatesPresentFields(t *testing.T) {
	empty := "  "
	p := Patch{Title: &empty}
	var verr *ValidationError
	if err := p.Normalize(); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}

	desc := " updated "
	p = Patch{Desc: &desc}
	if err := p.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Description == nil || *p.Description != "updated" {
		t.Fatalf("desc alias not resolved in patch: %+v", p)
	}
}

func TestPatchApplyTouchesOnlyPresentFields(t *testing.T) {
	n := Note{ID: "1", Title: "old", Description: "old body", Priority: PriorityLow, OwnerID: "owner", PublicID: "pub"}
	title := "new"
	starred := true
	p := Patch{Title: &title, Starred: &starred}
	p.Apply(&n)

	if n.Title != "new" || !n.Starred {
		t.Fatalf("patch not applied: %+v", n)
	}
	if n.Description != "old body" || n.Priority != PriorityLow {
		t.Fatalf("untouched fields changed: %+v", n)
	}
	if n.OwnerID != "owner" || n.PublicID != "pub" || n.ID != "1" {
		t.Fatalf("immutable fields changed: %+v", n)
	}
}

func TestNotePublicProjection(t *testing.T) {
	n := Note{
		ID: "1", Title: "Trip", Description: "Plan the trip",
		Tags: []string{"travel", "fun"}, Priority: PriorityHigh,
		Starred: true, Archived: true, PublicID: "pub", OwnerID: "owner",
	}
	p := n.Public()
	if p.Title != "Trip" || p.Description != "Plan the trip" {
		t.Fatalf("unexpected projection: %+v", p)
	}
	data, err := sonic.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := sonic.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, leak := range []string{"priority", "archived", "starred", "ownerId", "id", "publicId", "createdAt"} {
		if _, ok := fields[leak]; ok {
			t.Fatalf("projection leaks %q: %s", leak, data)
		}
	}
}
