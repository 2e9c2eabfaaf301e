package issue

import (
	"fmt"
	"sort"
	"strings"
)

// Relation is one entry of a populate request: a relation name and the
// projected fields of the related record. An empty Fields means all allowed fields.
type Relation struct {
	Name   string
	Fields []string
}

type Populate []Relation

type relationDef struct {
	assoc   string
	pk      string
	columns map[string]string
}

var (
	userColumns    = map[string]string{"name": "name", "email": "email"}
	parentColumns  = map[string]string{"key": "issue_key", "title": "title", "status": "status", "type": "type", "priority": "priority"}
	projectColumns = map[string]string{"name": "name", "key": "project_key", "description": "description"}
)

var relations = map[string]relationDef{
	"assignee": {assoc: "Assignee", pk: "u_id", columns: userColumns},
	"reporter": {assoc: "Reporter", pk: "u_id", columns: userColumns},
	"parent":   {assoc: "Parent", pk: "i_id", columns: parentColumns},
	"project":  {assoc: "Project", pk: "p_id", columns: projectColumns},
}

var (
	// DefaultPopulate is used by single-issue reads when the caller sends none.
	DefaultPopulate = Populate{
		{Name: "assignee", Fields: []string{"name", "email"}},
		{Name: "reporter", Fields: []string{"name", "email"}},
		{Name: "parent", Fields: []string{"key", "title"}},
	}
	// CreatedPopulate is resolved on the issue returned by creation.
	CreatedPopulate = Populate{
		{Name: "reporter", Fields: []string{"name", "email"}},
		{Name: "assignee", Fields: []string{"name", "email"}},
		{Name: "project", Fields: []string{"name", "key"}},
	}
)

// ParsePopulate parses "rel[:field|field],rel..." into a Populate. Unknown
// relations, unknown fields and duplicates reject the whole spec.
func ParsePopulate(raw string) (Populate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out Populate
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty relation in populate %q", raw)
		}
		name, fieldSpec, hasFields := strings.Cut(part, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		def, ok := relations[name]
		if !ok {
			return nil, fmt.Errorf("unknown relation %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate relation %q", name)
		}
		seen[name] = true

		rel := Relation{Name: name}
		if hasFields {
			for _, f := range strings.Split(fieldSpec, "|") {
				f = strings.TrimSpace(f)
				if _, ok := def.columns[f]; !ok {
					return nil, fmt.Errorf("unknown field %q for relation %q", f, name)
				}
				rel.Fields = append(rel.Fields, f)
			}
		}
		out = append(out, rel)
	}
	return out, nil
}

// Association returns the struct field name to preload for rel.
func (r Relation) Association() string {
	return relations[r.Name].assoc
}

// Columns returns the selected columns for rel, primary key first.
func (r Relation) Columns() []string {
	def := relations[r.Name]
	cols := []string{def.pk}
	fields := r.Fields
	if len(fields) == 0 {
		for f := range def.columns {
			fields = append(fields, f)
		}
		sort.Strings(fields)
	}
	for _, f := range fields {
		cols = append(cols, def.columns[f])
	}
	return cols
}
