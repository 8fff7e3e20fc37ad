package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryClient is an in-process Client. It backs tests and local
// development with real filter, conflict, and subscription semantics.
type MemoryClient struct {
	mu      sync.RWMutex
	tables  map[string][]Record
	uniques map[string][]uniqueConstraint
	rpcs    map[string]func(ctx context.Context, payload Record) (any, error)
	uploads map[string][]byte
	subs    map[int]*memorySub
	nextSub int
	baseURL string
}

type uniqueConstraint struct {
	name    string
	columns []string
}

type memorySub struct {
	table   string
	filters []Filter
	fn      func(Event)
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		tables:  make(map[string][]Record),
		uniques: make(map[string][]uniqueConstraint),
		rpcs:    make(map[string]func(ctx context.Context, payload Record) (any, error)),
		uploads: make(map[string][]byte),
		subs:    make(map[int]*memorySub),
		baseURL: "https://storage.plusopinion.com",
	}
}

// AddUnique declares a named unique constraint over the given columns.
// Inserts violating it fail with CodeConflict and the constraint name
// in the error detail.
func (c *MemoryClient) AddUnique(table, name string, columns ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.uniques[table] = append(c.uniques[table], uniqueConstraint{name: name, columns: columns})
}

// HandleRPC registers the implementation of a stored procedure.
func (c *MemoryClient) HandleRPC(proc string, fn func(ctx context.Context, payload Record) (any, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rpcs[proc] = fn
}

// Seed loads rows into a table without conflict checks or events.
func (c *MemoryClient) Seed(table string, rows ...Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tables[table] = append(c.tables[table], rows...)
}

func (c *MemoryClient) Select(ctx context.Context, table string, filters ...Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(CodeUnavailable, "select "+table, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Record
	for _, row := range c.tables[table] {
		if matchesAll(row, filters) {
			out = append(out, cloneRecord(row))
		}
	}
	return out, nil
}

func (c *MemoryClient) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(CodeUnavailable, "insert "+table, err)
	}

	c.mu.Lock()
	for _, uc := range c.uniques[table] {
		for _, row := range c.tables[table] {
			if sameOn(row, rec, uc.columns) {
				c.mu.Unlock()
				return nil, &Error{
					Code:    CodeConflict,
					Message: "duplicate key value violates unique constraint",
					Detail:  uc.name,
				}
			}
		}
	}
	stored := cloneRecord(rec)
	c.tables[table] = append(c.tables[table], stored)
	subs := c.matchingSubs(table, stored)
	c.mu.Unlock()

	dispatch(subs, Event{Table: table, Action: EventInsert, Record: cloneRecord(stored)})
	return cloneRecord(stored), nil
}

func (c *MemoryClient) Update(ctx context.Context, table string, rec Record, filters ...Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(CodeUnavailable, "update "+table, err)
	}

	c.mu.Lock()
	var updated []Record
	var events []Event
	var subs [][]*memorySub
	for _, row := range c.tables[table] {
		if !matchesAll(row, filters) {
			continue
		}
		old := cloneRecord(row)
		for k, v := range rec {
			row[k] = v
		}
		updated = append(updated, cloneRecord(row))
		events = append(events, Event{Table: table, Action: EventUpdate, Record: cloneRecord(row), Old: old})
		subs = append(subs, c.matchingSubs(table, row))
	}
	c.mu.Unlock()

	for i, ev := range events {
		dispatch(subs[i], ev)
	}
	return updated, nil
}

func (c *MemoryClient) Delete(ctx context.Context, table string, filters ...Filter) error {
	if err := ctx.Err(); err != nil {
		return WrapError(CodeUnavailable, "delete "+table, err)
	}

	c.mu.Lock()
	var kept []Record
	var events []Event
	var subs [][]*memorySub
	for _, row := range c.tables[table] {
		if matchesAll(row, filters) {
			events = append(events, Event{Table: table, Action: EventDelete, Old: cloneRecord(row)})
			subs = append(subs, c.matchingSubs(table, row))
			continue
		}
		kept = append(kept, row)
	}
	c.tables[table] = kept
	c.mu.Unlock()

	for i, ev := range events {
		dispatch(subs[i], ev)
	}
	return nil
}

func (c *MemoryClient) RPC(ctx context.Context, proc string, payload Record) (any, error) {
	c.mu.RLock()
	fn, ok := c.rpcs[proc]
	c.mu.RUnlock()

	if !ok {
		return nil, NewError(CodeNotFound, "no such procedure: "+proc)
	}
	return fn(ctx, payload)
}

func (c *MemoryClient) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", WrapError(CodeUnavailable, "upload "+path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := bucket + "/" + strings.TrimPrefix(path, "/")
	c.uploads[key] = append([]byte(nil), data...)
	return c.baseURL + "/" + key, nil
}

func (c *MemoryClient) Subscribe(ctx context.Context, table string, fn func(Event), filters ...Filter) (func(), error) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = &memorySub{table: table, filters: filters, fn: fn}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return cancel, nil
}

// matchingSubs must be called with the mutex held.
func (c *MemoryClient) matchingSubs(table string, row Record) []*memorySub {
	var out []*memorySub
	for _, s := range c.subs {
		if s.table == table && matchesAll(row, s.filters) {
			out = append(out, s)
		}
	}
	return out
}

func dispatch(subs []*memorySub, ev Event) {
	for _, s := range subs {
		s.fn(ev)
	}
}

func matchesAll(row Record, filters []Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row Record, f Filter) bool {
	val, ok := row[f.Column]
	if !ok {
		return false
	}

	switch f.Op {
	case OpEq:
		return equalValue(val, f.Value)
	case OpLike:
		pattern, ok1 := f.Value.(string)
		s, ok2 := val.(string)
		if !ok1 || !ok2 {
			return false
		}
		return likeMatch(s, pattern)
	case OpIn:
		values, ok := f.Value.([]any)
		if !ok {
			return false
		}
		for _, v := range values {
			if equalValue(val, v) {
				return true
			}
		}
		return false
	case OpGte:
		n, ok := asFloat(val)
		want, _ := f.Value.(float64)
		return ok && n >= want
	case OpLte:
		n, ok := asFloat(val)
		want, _ := f.Value.(float64)
		return ok && n <= want
	case OpContains:
		list, ok := val.([]any)
		if !ok {
			return false
		}
		for _, v := range list {
			if equalValue(v, f.Value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// likeMatch implements SQL LIKE with % wildcards only.
func likeMatch(s, pattern string) bool {
	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return s == pattern
	}

	if parts[0] != "" {
		if !strings.HasPrefix(s, parts[0]) {
			return false
		}
		s = s[len(parts[0]):]
	}
	last := parts[len(parts)-1]
	if last != "" {
		if !strings.HasSuffix(s, last) {
			return false
		}
		s = s[:len(s)-len(last)]
	}
	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		idx := strings.Index(s, mid)
		if idx < 0 {
			return false
		}
		s = s[idx+len(mid):]
	}
	return true
}

func equalValue(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func sameOn(a, b Record, columns []string) bool {
	for _, col := range columns {
		av, aok := a[col]
		bv, bok := b[col]
		if !aok || !bok || !equalValue(av, bv) {
			return false
		}
	}
	return len(columns) > 0
}

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
