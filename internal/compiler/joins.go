package compiler

import "datafood/internal/schema"

// joinSet tracks which tables are already part of the FROM clause. It is
// seeded with the fact table and only grows through ensure.
type joinSet struct {
	joined map[schema.Table]bool
	steps  []schema.JoinStep
}

func newJoinSet() *joinSet {
	return &joinSet{joined: map[schema.Table]bool{schema.FactTable: true}}
}

func (j *joinSet) has(t schema.Table) bool { return j.joined[t] }

// ensure joins t along its fixed path. Steps whose table is already present
// are skipped, so a bridge table shared by two paths is joined once.
func (j *joinSet) ensure(t schema.Table) {
	if t == "" || j.joined[t] {
		return
	}
	for _, step := range schema.PathTo(t) {
		if j.joined[step.Table] {
			continue
		}
		j.steps = append(j.steps, step)
		j.joined[step.Table] = true
	}
}
