// Package sourcetest provides an in-memory source.Fetcher for tests.
package sourcetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nhle/ecotrack-console/internal/source"
)

// MutateCall records one MutateResource invocation.
type MutateCall struct {
	Resource source.Resource
	ID       string
	Op       source.Operation
	Payload  any
}

// Fake is a scriptable Fetcher. Zero value is ready to use and serves
// empty collections.
type Fake struct {
	mu sync.Mutex

	collections map[source.Resource][]source.RawRecord
	fetchErrs   map[source.Resource]error

	// FetchFunc, when set, serves every fetch in place of the scripted
	// collections.
	FetchFunc func(ctx context.Context, resource source.Resource) ([]source.RawRecord, error)

	// MutateFunc, when set, decides the outcome of every mutation.
	MutateFunc func(ctx context.Context, call MutateCall) (source.RawRecord, error)

	fetches []source.Resource
	mutates []MutateCall
}

var _ source.Fetcher = (*Fake)(nil)

// SetCollection makes resource serve the JSON encoding of each record.
func (f *Fake) SetCollection(resource source.Resource, records ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collections == nil {
		f.collections = make(map[source.Resource][]source.RawRecord)
	}
	f.collections[resource] = Records(records...)
}

// FailFetch makes every fetch of resource return err. A nil err clears it.
func (f *Fake) FailFetch(resource source.Resource, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErrs == nil {
		f.fetchErrs = make(map[source.Resource]error)
	}
	if err == nil {
		delete(f.fetchErrs, resource)
		return
	}
	f.fetchErrs[resource] = err
}

// FetchCollection implements source.Fetcher.
func (f *Fake) FetchCollection(ctx context.Context, resource source.Resource) ([]source.RawRecord, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, resource)
	fn := f.FetchFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, resource)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErrs[resource]; err != nil {
		return nil, err
	}
	return append([]source.RawRecord(nil), f.collections[resource]...), nil
}

// MutateResource implements source.Fetcher.
func (f *Fake) MutateResource(
	ctx context.Context,
	resource source.Resource,
	id string,
	op source.Operation,
	payload any,
) (source.RawRecord, error) {
	call := MutateCall{Resource: resource, ID: id, Op: op, Payload: payload}

	f.mu.Lock()
	f.mutates = append(f.mutates, call)
	fn := f.MutateFunc
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, call)
}

// Fetches returns the resources fetched so far, in call order.
func (f *Fake) Fetches() []source.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Resource(nil), f.fetches...)
}

// Mutations returns the mutations issued so far, in call order.
func (f *Fake) Mutations() []MutateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MutateCall(nil), f.mutates...)
}

// Err builds a FetchError of the given kind.
func Err(kind source.ErrorKind, reason string) error {
	return &source.FetchError{Kind: kind, Reason: reason, Method: "TEST"}
}

// Records JSON-encodes each value. It panics on values that cannot be
// encoded, which only happens with broken test fixtures.
func Records(values ...any) []source.RawRecord {
	out := make([]source.RawRecord, len(values))
	for i, v := range values {
		if raw, ok := v.(string); ok {
			out[i] = source.RawRecord(raw)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("sourcetest: encoding fixture %d: %v", i, err))
		}
		out[i] = b
	}
	return out
}
