package localstore

// Operator is one of the six comparison operators of the document API.
type Operator string

const (
	OpEq Operator = "=="
	OpNe Operator = "!="
	OpGt Operator = ">"
	OpLt Operator = "<"
	OpGe Operator = ">="
	OpLe Operator = "<="
)

type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Query is a filter chain over one collection. Every chained Where narrows
// the result set (logical AND). Call sites chain at most a few filters, but
// the builder itself has no depth limit.
type Query struct {
	coll    *Collection
	filters []Filter
}

func (q *Query) Where(field string, op Operator, value any) *Query {
	return &Query{
		coll:    q.coll,
		filters: append(append([]Filter(nil), q.filters...), Filter{field, op, value}),
	}
}

// Get returns the records matching every filter, in insertion order.
func (q *Query) Get() []Document {
	s := q.coll.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, rec := range s.collections[q.coll.name] {
		if q.matches(rec) {
			docs = append(docs, wrap(rec))
		}
	}
	return docs
}

func (q *Query) matches(rec record) bool {
	for _, f := range q.filters {
		if !f.matches(rec[f.Field]) {
			return false
		}
	}
	return true
}

func (f Filter) matches(value any) bool {
	switch f.Op {
	case OpEq:
		eq, ok := equal(value, f.Value)
		return ok && eq
	case OpNe:
		eq, ok := equal(value, f.Value)
		return !ok || !eq
	case OpGt:
		cmp, ok := compare(value, f.Value)
		return ok && cmp > 0
	case OpLt:
		cmp, ok := compare(value, f.Value)
		return ok && cmp < 0
	case OpGe:
		cmp, ok := compare(value, f.Value)
		return ok && cmp >= 0
	case OpLe:
		cmp, ok := compare(value, f.Value)
		return ok && cmp <= 0
	}
	return false
}

// equal uses the default equality of the value's type. Numbers compare by
// value across int/float representations, since records that went through
// the JSON blob come back with float64 fields.
func equal(a, b any) (eq, ok bool) {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		return aok && bok && na == nb, bok
	}
	switch va := a.(type) {
	case string:
		vb, bok := b.(string)
		return va == vb, bok
	case bool:
		vb, bok := b.(bool)
		return va == vb, bok
	case nil:
		return b == nil, true
	}
	return false, false
}

func compare(a, b any) (cmp int, ok bool) {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		if !bok {
			return 0, false
		}
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		}
		return 0, true
	}
	va, aok := a.(string)
	vb, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case va < vb:
		return -1, true
	case va > vb:
		return 1, true
	}
	return 0, true
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
