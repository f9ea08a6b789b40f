package testutil

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/knakk/rdf"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/internal/store"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/rdfio"
	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/vocab"
)

// FakeStore is a scripted store.Executor. Every request is recorded; responses
// come from the optional hooks, defaulting to empty results.
type FakeStore struct {
	mu      sync.Mutex
	updates []string
	queries []string

	UpdateFn    func(update string) error
	ConstructFn func(query string) (rdfio.Graph, error)
	SelectFn    func(query string) (*store.Results, error)
	AskFn       func(query string) (bool, error)
	ForwardFn   func(query, accept string) (*store.Response, error)
}

var _ store.Executor = (*FakeStore)(nil)

// NewFakeStore returns a store that accepts every update and answers every
// query with nothing.
func NewFakeStore() *FakeStore { return &FakeStore{} }

func (f *FakeStore) Update(_ context.Context, update string) error {
	f.mu.Lock()
	f.updates = append(f.updates, update)
	fn := f.UpdateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(update)
	}
	return nil
}

func (f *FakeStore) Construct(_ context.Context, query string, _ ...store.Option) (rdfio.Graph, error) {
	f.record(query)
	if f.ConstructFn != nil {
		return f.ConstructFn(query)
	}
	return nil, nil
}

func (f *FakeStore) Select(_ context.Context, query string, _ ...store.Option) (*store.Results, error) {
	f.record(query)
	if f.SelectFn != nil {
		return f.SelectFn(query)
	}
	return &store.Results{}, nil
}

func (f *FakeStore) Ask(_ context.Context, query string, _ ...store.Option) (bool, error) {
	f.record(query)
	if f.AskFn != nil {
		return f.AskFn(query)
	}
	return false, nil
}

func (f *FakeStore) Forward(_ context.Context, query, accept string, _ ...store.Option) (*store.Response, error) {
	f.record(query)
	if f.ForwardFn != nil {
		return f.ForwardFn(query, accept)
	}
	return &store.Response{ContentType: accept}, nil
}

func (f *FakeStore) record(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
}

// Updates returns every update received so far.
func (f *FakeStore) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

// Queries returns every query received so far.
func (f *FakeStore) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

var mtPrefix = regexp.MustCompile(`PREFIX mt: <([^>]+)>`)

// TransactionIRI extracts the transaction node declared in a query's prologue.
func TransactionIRI(query string) string {
	m := mtPrefix.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return m[1]
}

// TransactionID returns the transaction identifier declared in a query's
// prologue.
func TransactionID(query string) string {
	mt := TransactionIRI(query)
	return mt[strings.LastIndex(mt, "/")+1:]
}

// Committed answers a write probe as if the write had been applied.
func Committed(query string, triples ...rdf.Triple) rdfio.Graph {
	mt := TransactionIRI(query)
	return append(rdfio.Graph{IRITriple(mt, vocab.RDFType, vocab.ClassTransaction)}, triples...)
}

// Rejected answers a probe in which only the given condition keys matched.
func Rejected(query string, bound ...string) rdfio.Graph {
	mt := TransactionIRI(query)
	var g rdfio.Graph
	for _, key := range bound {
		g = append(g, LitTriple(mt, vocab.Inspect, key))
	}
	return g
}

// ReadOK answers a guarded read whose conditions all matched.
func ReadOK(query string, triples ...rdf.Triple) rdfio.Graph {
	mt := TransactionIRI(query)
	return append(rdfio.Graph{LitTriple(mt, vocab.Inspect, "__mms_ok")}, triples...)
}

// IRITriple builds a triple with an IRI object. It panics on invalid input.
func IRITriple(s, p, o string) rdf.Triple {
	t, err := rdfio.Triple(s, p, o, true)
	if err != nil {
		panic(err)
	}
	return t
}

// LitTriple builds a triple with a plain literal object. It panics on invalid
// input.
func LitTriple(s, p, o string) rdf.Triple {
	t, err := rdfio.Triple(s, p, o, false)
	if err != nil {
		panic(err)
	}
	return t
}
