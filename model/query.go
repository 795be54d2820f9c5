package model

import (
	"errors"
	"fmt"
)

// Query helps to extract native data from a Value tree. Errors stick:
// the first failure is remembered and all following accesses return
// zero values, so a chain of lookups needs only one Err check at the
// end.
type Query struct {
	value Value
	err   *error
	// faster lookup for structs
	lookup map[string]*Query
	// cache arrays
	array []*Query
}

// Q creates a new Query for the specified Value.
func Q(v Value) *Query {
	var err error
	return &Query{value: v, err: &err}
}

// Err returns the first encountered error.
func (q *Query) Err() error {
	return *q.err
}

// Value returns the wrapped Value.
func (q *Query) Value() Value {
	return q.value
}

// IsNil returns true, if the value is a Nil value.
func (q *Query) IsNil() bool {
	if q.Err() != nil || q.value == nil {
		return false
	}
	_, ok := q.value.(Nil)
	return ok
}

// Int gets an XML-RPC int or i4 value.
func (q *Query) Int() int {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	i, ok := q.value.(Int)
	if !ok {
		*q.err = errors.New("not an int")
		return 0
	}
	return int(i)
}

// Bool gets an XML-RPC boolean value.
func (q *Query) Bool() bool {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return false
	}
	b, ok := q.value.(Bool)
	if !ok {
		*q.err = errors.New("not a bool")
		return false
	}
	return bool(b)
}

// Float64 gets an XML-RPC double value.
func (q *Query) Float64() float64 {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	d, ok := q.value.(Double)
	if !ok {
		*q.err = errors.New("not a double")
		return 0
	}
	return float64(d)
}

// String gets an XML-RPC string value.
func (q *Query) String() string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return ""
	}
	s, ok := q.value.(String)
	if !ok {
		*q.err = errors.New("not a string")
		return ""
	}
	return string(s)
}

// Bytes gets an XML-RPC base64 value.
func (q *Query) Bytes() []byte {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	b, ok := q.value.(Base64)
	if !ok {
		*q.err = errors.New("not a base64 value")
		return nil
	}
	return []byte(b)
}

// Timestamp gets an XML-RPC dateTime.iso8601 value as epoch seconds.
func (q *Query) Timestamp() int64 {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	d, ok := q.value.(DateTime)
	if !ok {
		*q.err = errors.New("not a dateTime value")
		return 0
	}
	return int64(d)
}

// Any returns data type int, bool, float64, string, []byte, int64 or
// nil. Arrays and structs set an error.
func (q *Query) Any() interface{} {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	switch v := q.value.(type) {
	case Nil:
		return nil
	case Int:
		return int(v)
	case Bool:
		return bool(v)
	case Double:
		return float64(v)
	case String:
		return string(v)
	case Base64:
		return []byte(v)
	case DateTime:
		return int64(v)
	}
	*q.err = fmt.Errorf("not a scalar: %T", q.value)
	return nil
}

// Map returns all members of an XML-RPC struct. For a duplicated
// member name the last member wins.
func (q *Query) Map() map[string]*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty map
		return nil
	}
	// is map already created?
	if q.lookup != nil {
		return q.lookup
	}
	// create map
	s, ok := q.value.(Struct)
	if !ok {
		*q.err = errors.New("not a struct")
		return nil
	}
	q.lookup = make(map[string]*Query)
	for _, m := range s {
		q.lookup[m.Name] = &Query{value: m.Value, err: q.err}
	}
	return q.lookup
}

// key gets the specified member from a struct.
func (q *Query) key(name string, must bool) *Query {
	m := q.Map()
	// previous error?
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// lookup
	f, ok := m[name]
	if !ok {
		if must {
			*q.err = fmt.Errorf("field not found: %s", name)
		}
		return &Query{err: q.err}
	}
	return f
}

// Key sets an error, if the specified member is missing.
func (q *Query) Key(name string) *Query {
	return q.key(name, true)
}

// TryKey does not set an error, if the specified member is missing.
func (q *Query) TryKey(name string) *Query {
	return q.key(name, false)
}

// Slice returns all array elements.
func (q *Query) Slice() []*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	// array already created?
	if q.array != nil {
		return q.array
	}
	// create array
	a, ok := q.value.(Array)
	if !ok {
		*q.err = errors.New("not an array")
		return nil
	}
	q.array = make([]*Query, len(a))
	for i, v := range a {
		q.array[i] = &Query{value: v, err: q.err}
	}
	return q.array
}

// Strings returns a string array.
func (q *Query) Strings() []string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	// create array
	var r []string
	s := q.Slice()
	for _, e := range s {
		r = append(r, e.String())
	}
	if q.Err() != nil {
		// return empty slice
		return nil
	}
	return r
}

// Idx returns the array element at i.
func (q *Query) Idx(i int) *Query {
	s := q.Slice()
	// previous error
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// check bounds
	if i < 0 || i >= len(s) {
		*q.err = fmt.Errorf("index out of bounds (array length: %d): %d", len(s), i)
		return &Query{err: q.err}
	}
	return s[i]
}
