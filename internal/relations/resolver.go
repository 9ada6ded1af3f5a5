// Package relations decides which related rows to eager-load for a request.
//
// Each resource declares an ordered allow-list of relation names. A client
// asks for relations with the comma separated "include" query parameter;
// only names on the resource's allow-list are loaded and everything else is
// ignored. Nested names such as "attendees.user" are matched literally.
package relations

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

type Relation string

const (
	RelUser          Relation = "user"
	RelAttendees     Relation = "attendees"
	RelAttendeesUser Relation = "attendees.user"
)

// Loader adds the eager-load instruction for one relation to a query.
type Loader func(q *bun.SelectQuery) *bun.SelectQuery

type Rule struct {
	Name Relation
	Load Loader
}

type Resource int

const (
	Events Resource = iota
	Attendees
)

func (r Resource) String() string {
	switch r {
	case Events:
		return "events"
	case Attendees:
		return "attendees"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

func orderedAttendees(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("attendee.created_at DESC", "attendee.id DESC")
}

var table = map[Resource][]Rule{
	Events: {
		{Name: RelUser, Load: func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("User") }},
		{Name: RelAttendees, Load: func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("Attendees", orderedAttendees) }},
		{Name: RelAttendeesUser, Load: func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Relation("Attendees", orderedAttendees).Relation("Attendees.User")
		}},
	},
	Attendees: {
		{Name: RelUser, Load: func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("User") }},
	},
}

// Rules returns the allow-list of r in evaluation order.
func (r Resource) Rules() []Rule {
	return table[r]
}

// Allowed reports whether rel is on the allow-list of r.
func (r Resource) Allowed(rel Relation) bool {
	_, ok := r.rule(rel)
	return ok
}

func (r Resource) rule(rel Relation) (Rule, bool) {
	for _, rule := range table[r] {
		if rule.Name == rel {
			return rule, true
		}
	}
	return Rule{}, false
}

// Set is the ordered list of relations selected for a request.
type Set []Relation

func (s Set) Has(rel Relation) bool {
	for _, r := range s {
		if r == rel {
			return true
		}
	}
	return false
}

func (s Set) add(rel Relation) Set {
	if s.Has(rel) {
		return s
	}
	return append(s, rel)
}

// Requested splits an include parameter into its trimmed, non-empty names.
func Requested(include string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, name := range strings.Split(include, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = struct{}{}
		}
	}
	return out
}

// Select returns the allow-listed relations named in include, in allow-list order.
func (r Resource) Select(include string) Set {
	requested := Requested(include)
	if len(requested) == 0 {
		return nil
	}
	var set Set
	for _, rule := range table[r] {
		if _, ok := requested[string(rule.Name)]; ok {
			set = set.add(rule.Name)
		}
	}
	return set
}

// Apply adds the loaders for every selected relation to q.
func (r Resource) Apply(q *bun.SelectQuery, include string, always ...Relation) (*bun.SelectQuery, Set) {
	set := r.with(r.Select(include), always)
	for _, rel := range set {
		rule, _ := r.rule(rel)
		q = rule.Load(q)
	}
	return q, set
}

// Load reloads an already fetched model by primary key together with the
// selected relations. model must be a pointer to a struct with its key set.
// Nothing is queried when no relation is selected.
func (r Resource) Load(ctx context.Context, db bun.IDB, model interface{}, include string, always ...Relation) (Set, error) {
	set := r.with(r.Select(include), always)
	if len(set) == 0 {
		return nil, nil
	}
	q, _ := r.Apply(db.NewSelect().Model(model).WherePK(), "", set...)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("load %s relations %v: %w", r, set, err)
	}
	return set, nil
}

// with merges forced relations into set, keeping allow-list order and
// dropping anything the resource does not allow.
func (r Resource) with(set Set, always []Relation) Set {
	if len(always) == 0 {
		return set
	}
	var out Set
	for _, rule := range table[r] {
		if set.Has(rule.Name) {
			out = out.add(rule.Name)
			continue
		}
		for _, a := range always {
			if a == rule.Name {
				out = out.add(rule.Name)
			}
		}
	}
	return out
}
