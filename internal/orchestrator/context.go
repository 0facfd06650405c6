package orchestrator

import (
	"sort"

	"github.com/fyrsmithlabs/seoflow/internal/agent"
)

// SourceInput names the record holding the caller input.
const SourceInput = "input"

// Record is one immutable contribution to an ExecutionContext.
type Record struct {
	Source string
	Values map[string]any
}

// ExecutionContext is an ordered accumulation of records. Lookups return
// the most recent value for a key and keys are never removed. It is owned
// by a single run and is not safe for concurrent mutation.
type ExecutionContext struct {
	records []Record
}

// NewExecutionContext seeds the context with the caller input.
func NewExecutionContext(input map[string]any) *ExecutionContext {
	c := &ExecutionContext{}
	c.Append(SourceInput, input)
	return c
}

// Append adds a record. values is copied.
func (c *ExecutionContext) Append(source string, values map[string]any) {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	c.records = append(c.records, Record{Source: source, Values: cp})
}

// Get returns the latest value for key.
func (c *ExecutionContext) Get(key string) (any, bool) {
	for i := len(c.records) - 1; i >= 0; i-- {
		if v, ok := c.records[i].Values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Provenance returns the source of the record that supplies key.
func (c *ExecutionContext) Provenance(key string) (string, bool) {
	for i := len(c.records) - 1; i >= 0; i-- {
		if _, ok := c.records[i].Values[key]; ok {
			return c.records[i].Source, true
		}
	}
	return "", false
}

// Keys returns every visible key, sorted.
func (c *ExecutionContext) Keys() []string {
	seen := make(map[string]struct{})
	for _, r := range c.records {
		for k := range r.Values {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sources maps every visible key to the record that supplies it.
func (c *ExecutionContext) Sources() map[string]string {
	keys := c.Keys()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k], _ = c.Provenance(k)
	}
	return out
}

// Records returns the records in insertion order.
func (c *ExecutionContext) Records() []Record {
	return append([]Record(nil), c.records...)
}

// mergeStep appends a step output under output_<agent> and as the
// unnamespaced field keys.
func (c *ExecutionContext) mergeStep(name agent.Name, out *agent.StepOutput) {
	fields := out.Fields()
	values := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values[name.OutputKey()] = fields
	c.Append(string(name), values)
}

var _ agent.Context = (*ExecutionContext)(nil)
