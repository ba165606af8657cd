package lead

import (
	"fmt"
	"sort"
	"time"
)

// ReservedFields cannot be changed through a generic field update: they are
// either the primary key or owned by the assignment path, which keeps the
// agent load counters in step with assigned_agent.
var ReservedFields = map[string]bool{
	"id":             true,
	"assigned_agent": true,
	"update_history": true,
	"created_at":     true,
	"current_load":   true,
}

// Patch is a generic field update. Known keys map onto Lead columns; any other
// key lands in Attributes.
type Patch struct {
	Fields       map[string]any
	LastActivity time.Time
	// BulkNote, when set, is appended to Notes.
	BulkNote string
}

// FieldNames returns the patched keys in a stable order, primary key excluded.
func (p Patch) FieldNames() []string {
	names := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		if k == "id" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Apply mutates l in place. Adapters that cannot express the patch natively
// (the in-memory store, the postgres read-modify-write path) share this.
func (p Patch) Apply(l *Lead) error {
	for _, k := range p.FieldNames() {
		v := p.Fields[k]
		switch k {
		case "name":
			l.Name = asString(v)
		case "email":
			l.Email = asString(v)
		case "phone":
			l.Phone = asString(v)
		case "company":
			l.Company = asString(v)
		case "source":
			l.Source = asString(v)
		case "status":
			l.Status = asString(v)
		case "disposition":
			l.Disposition = asString(v)
		case "notes":
			l.Notes = asString(v)
		case "priority":
			pr := Priority(asString(v))
			if !pr.Valid() {
				return fmt.Errorf("invalid priority %q", pr)
			}
			l.Priority = pr
		case "tags":
			tags, err := asStrings(v)
			if err != nil {
				return fmt.Errorf("field tags: %w", err)
			}
			l.Tags = tags
		default:
			if l.Attributes == nil {
				l.Attributes = map[string]any{}
			}
			l.Attributes[k] = v
		}
	}
	if p.BulkNote != "" {
		if l.Notes != "" {
			l.Notes += "\n"
		}
		l.Notes += p.BulkNote
	}
	at := p.LastActivity.UTC()
	l.LastActivity = &at
	l.UpdatedAt = at
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asStrings(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string item, got %T", item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}
}
