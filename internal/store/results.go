package store

import (
	"encoding/json"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
)

// Results is a decoded application/sparql-results+json document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean,omitempty"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is one solution.
type Binding map[string]Value

// Value is one bound term.
type Value struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Get returns the lexical value bound to name, or "".
func (b Binding) Get(name string) string {
	return b[name].Value
}

// Bound reports whether name is bound.
func (b Binding) Bound(name string) bool {
	_, ok := b[name]
	return ok
}

// Column returns the values bound to name across all solutions, skipping
// unbound rows.
func (r *Results) Column(name string) []string {
	var out []string
	for _, b := range r.Results.Bindings {
		if v, ok := b[name]; ok {
			out = append(out, v.Value)
		}
	}
	return out
}

func decodeResults(body []byte) (*Results, error) {
	var res Results
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, apperror.ErrUpstream.WithMessage("Graph store returned unreadable results").WithInternal(err)
	}
	return &res, nil
}
