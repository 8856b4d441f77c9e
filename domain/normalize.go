package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// ValidationError reports a draft or patch that cannot become a valid note.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErr(reason string) error { return &ValidationError{Reason: reason} }

// TagList accepts the two wire shapes clients historically sent for tags: a
// JSON array of strings or a single comma-delimited string. Either way the
// result is trimmed, empties dropped, order preserved, duplicates kept.
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := sonic.Unmarshal(data, &list); err == nil {
		*t = normalizeTags(list)
		return nil
	}
	var joined string
	if err := sonic.Unmarshal(data, &joined); err != nil {
		return validationErr("tags must be a string or an array of strings")
	}
	*t = normalizeTags(strings.Split(joined, ","))
	return nil
}

func normalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Draft is the payload of a create request. Description is accepted under
// both "desc" (what the reference client sends) and "description".
type Draft struct {
	Title       string   `json:"title"`
	Desc        string   `json:"desc"`
	Description string   `json:"description"`
	Tags        TagList  `json:"tags"`
	Priority    Priority `json:"priority"`
	Archived    bool     `json:"archived"`
	Starred     bool     `json:"starred"`
}

// Normalize maps an accepted external representation into the canonical note
// shape once, at the edge. It trims title and description, resolves the desc
// alias, re-normalizes tags for drafts built in code rather than decoded from
// JSON, and defaults the priority to medium.
func (d *Draft) Normalize() error {
	d.Title = strings.TrimSpace(d.Title)
	if d.Description == "" {
		d.Description = d.Desc
	}
	d.Desc = ""
	d.Description = strings.TrimSpace(d.Description)
	if d.Title == "" || d.Description == "" {
		return validationErr("title and description are required")
	}
	d.Tags = normalizeTags(d.Tags)
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if !d.Priority.Valid() {
		return validationErr("priority must be low, medium or high")
	}
	return nil
}

// Patch carries the mutable note fields of an update request. Absent fields
// stay untouched; id, publicId, ownerId and timestamps are not patchable by
// construction.
type Patch struct {
	Title       *string   `json:"title"`
	Desc        *string   `json:"desc"`
	Description *string   `json:"description"`
	Tags        *TagList  `json:"tags"`
	Priority    *Priority `json:"priority"`
	Archived    *bool     `json:"archived"`
	Starred     *bool     `json:"starred"`
}

// Normalize trims the fields present in the patch and rejects ones that would
// empty a required field or set an unknown priority.
func (p *Patch) Normalize() error {
	if p.Description == nil {
		p.Description = p.Desc
	}
	p.Desc = nil
	if p.Title != nil {
		trimmed := strings.TrimSpace(*p.Title)
		if trimmed == "" {
			return validationErr("title cannot be empty")
		}
		p.Title = &trimmed
	}
	if p.Description != nil {
		trimmed := strings.TrimSpace(*p.Description)
		if trimmed == "" {
			return validationErr("description cannot be empty")
		}
		p.Description = &trimmed
	}
	if p.Tags != nil {
		normalized := TagList(normalizeTags(*p.Tags))
		p.Tags = &normalized
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return validationErr("priority must be low, medium or high")
	}
	return nil
}

// Apply copies the fields present in the patch onto n.
func (p *Patch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Tags != nil {
		n.Tags = *p.Tags
	}
	if p.Priority != nil {
		n.Priority = *p.Priority
	}
	if p.Archived != nil {
		n.Archived = *p.Archived
	}
	if p.Starred != nil {
		n.Starred = *p.Starred
	}
}
