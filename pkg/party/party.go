// Package party identifies the participants of a query execution:
// the mutually distrustful parties jointly evaluating it, and the
// groups of parties a given share or correlation is held by.
package party

import "sort"

// ID identifies a single party. Parties are compared and ordered by
// this value, so deployments should pick stable, short identifiers.
type ID string

// IDSlice is a set of party IDs with deterministic ordering.
type IDSlice []ID

// Sorted returns a copy of ids sorted ascending.
func (ids IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether id is present in the set.
func (ids IDSlice) Contains(id ID) bool {
	for _, q := range ids {
		if q == id {
			return true
		}
	}
	return false
}

// Without returns a copy of ids with self removed, preserving order.
func (ids IDSlice) Without(self ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

// Index returns the position of id within the sorted party list, or -1
// if id is not a member. Index is used to pick a replicated share's
// slot and to derive deterministic pairwise PRG groups.
func (ids IDSlice) Index(id ID) int {
	sorted := ids.Sorted()
	for i, q := range sorted {
		if q == id {
			return i
		}
	}
	return -1
}

// Group is an unordered set of parties that jointly hold some
// correlated randomness (a pairwise/common PRG, a sharded permutation,
// a reshare target). Groups are identified by their sorted, comma-free
// member list so two callers constructing "the same" group always
// agree on its identity.
type Group struct {
	members IDSlice
}

// NewGroup returns the canonical Group for the given members.
func NewGroup(members ...ID) Group {
	return Group{members: IDSlice(members).Sorted()}
}

// Members returns the group's parties in canonical order.
func (g Group) Members() IDSlice { return g.members }

// Size returns the number of parties in the group.
func (g Group) Size() int { return len(g.members) }

// Key returns a stable string identity for the group, suitable as a
// map key for PRG/correlation managers indexed by group identity.
func (g Group) Key() string {
	b := make([]byte, 0, len(g.members)*8)
	for i, m := range g.members {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, m...)
	}
	return string(b)
}

// Contains reports whether id is a member of the group.
func (g Group) Contains(id ID) bool { return g.members.Contains(id) }
