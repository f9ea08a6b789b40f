package rdfio

import (
	"sort"

	"github.com/knakk/rdf"
)

// Graph is a decoded set of triples.
type Graph []rdf.Triple

// Objects returns the lexical values of every object of (subj, pred). An empty
// subj matches any subject.
func (g Graph) Objects(subj, pred string) []string {
	var out []string
	for _, t := range g {
		if (subj == "" || t.Subj.String() == subj) && t.Pred.String() == pred {
			out = append(out, t.Obj.String())
		}
	}
	return out
}

// Object returns the first object of (subj, pred).
func (g Graph) Object(subj, pred string) (string, bool) {
	for _, t := range g {
		if t.Subj.String() == subj && t.Pred.String() == pred {
			return t.Obj.String(), true
		}
	}
	return "", false
}

// Subjects returns the distinct subjects of (pred, obj), sorted.
func (g Graph) Subjects(pred, obj string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range g {
		if t.Pred.String() == pred && t.Obj.String() == obj && !seen[t.Subj.String()] {
			seen[t.Subj.String()] = true
			out = append(out, t.Subj.String())
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether (subj, pred, obj) is present, comparing lexical values.
func (g Graph) Has(subj, pred, obj string) bool {
	for _, t := range g {
		if t.Subj.String() == subj && t.Pred.String() == pred && t.Obj.String() == obj {
			return true
		}
	}
	return false
}

// About returns the triples whose subject is subj.
func (g Graph) About(subj string) Graph {
	var out Graph
	for _, t := range g {
		if t.Subj.String() == subj {
			out = append(out, t)
		}
	}
	return out
}

// Without returns the triples whose predicate is not in preds.
func (g Graph) Without(preds ...string) Graph {
	drop := make(map[string]bool, len(preds))
	for _, p := range preds {
		drop[p] = true
	}
	var out Graph
	for _, t := range g {
		if !drop[t.Pred.String()] {
			out = append(out, t)
		}
	}
	return out
}

// Remove returns g without the triples matching subj and pred.
func (g Graph) Remove(subj, pred string) Graph {
	var out Graph
	for _, t := range g {
		if t.Subj.String() != subj || t.Pred.String() != pred {
			out = append(out, t)
		}
	}
	return out
}

// Key renders a triple as a comparable N-Triples line.
func Key(t rdf.Triple) string {
	return t.Subj.Serialize(rdf.NTriples) + " " + t.Pred.Serialize(rdf.NTriples) + " " + t.Obj.Serialize(rdf.NTriples) + " ."
}

// Keys returns the sorted keys of every triple, for set comparison.
func (g Graph) Keys() []string {
	out := make([]string, len(g))
	for i, t := range g {
		out[i] = Key(t)
	}
	sort.Strings(out)
	return out
}

// Except returns the triples whose subject is not subj.
func (g Graph) Except(subj string) Graph {
	var out Graph
	for _, t := range g {
		if t.Subj.String() != subj {
			out = append(out, t)
		}
	}
	return out
}
