package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Value is an XML-RPC value. The set of implementations is closed:
// Nil, Bool, Int, Double, String, Base64, DateTime, CData, Array and
// Struct. Base64, DateTime and CData are explicit variants chosen at
// construction time; on decode Base64 collapses to raw bytes, DateTime
// to epoch seconds, and CData does not occur (strings decode to
// String).
type Value interface {
	value()
}

// Nil is the XML-RPC nil value (<nil/> or <ex:nil/>).
type Nil struct{}

// Bool is an XML-RPC boolean.
type Bool bool

// Int is an XML-RPC int/i4. The wire format limits it to 32 bits.
type Int int32

// Double is an XML-RPC double.
type Double float64

// String is an XML-RPC string. Content is entity escaped on encode.
type String string

// Base64 is an XML-RPC base64 value, holding the raw bytes.
type Base64 []byte

// DateTime is an XML-RPC dateTime.iso8601 value as epoch seconds (UTC).
type DateTime int64

// CData is a string encoded as a raw <![CDATA[...]]> block instead of
// entity-escaped text. Encode-only; it never results from a decode.
type CData string

// Array is an ordered sequence of values.
type Array []Value

// Struct is an ordered sequence of named members. Names must be unique
// within one struct; the order is preserved on encode but carries no
// meaning on decode.
type Struct []Member

// Member is a single struct member.
type Member struct {
	Name  string
	Value Value
}

func (Nil) value()      {}
func (Bool) value()     {}
func (Int) value()      {}
func (Double) value()   {}
func (String) value()   {}
func (Base64) value()   {}
func (DateTime) value() {}
func (CData) value()    {}
func (Array) value()    {}
func (Struct) value()   {}

// NewBase64 creates a Base64 value. Empty content is rejected.
func NewBase64(b []byte) (Base64, error) {
	if len(b) == 0 {
		return nil, errors.New("empty base64 value")
	}
	return Base64(b), nil
}

// NewCData creates a CData value. Empty content is rejected.
func NewCData(s string) (CData, error) {
	if s == "" {
		return "", errors.New("empty CDATA value")
	}
	return CData(s), nil
}

// NewDateTime creates a DateTime value from a time.Time. Sub-second
// precision is dropped; the wire format carries whole seconds only.
func NewDateTime(t time.Time) DateTime {
	return DateTime(t.Unix())
}

// Get returns the value of the first member with the specified name.
func (s Struct) Get(name string) (Value, bool) {
	for _, m := range s {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Collection classifies an ordered collection of key/value pairs as
// Array or Struct: if the keys are exactly the contiguous integers
// 0..n-1 in order, the values form an Array; any other key set forms a
// Struct with the members in the given order.
func Collection(members []Member) Value {
	for i, m := range members {
		if m.Name != strconv.Itoa(i) {
			return Struct(members)
		}
	}
	vs := make(Array, len(members))
	for i, m := range members {
		vs[i] = m.Value
	}
	return vs
}

// NewValue creates a value from a native data type. Supported types:
// bool, int, int32, int64, float64, string, []byte, time.Time,
// []string, []interface{}, map[string]interface{} and Value itself.
// Map keys are sorted so the encoding is deterministic.
func NewValue(in interface{}) (Value, error) {
	switch val := in.(type) {
	case Value:
		return val, nil
	case nil:
		return Nil{}, nil
	case bool:
		return Bool(val), nil
	case int:
		return newInt(int64(val))
	case int32:
		return Int(val), nil
	case int64:
		return newInt(val)
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case []byte:
		return NewBase64(val)
	case time.Time:
		return NewDateTime(val), nil
	case []string:
		vs := make(Array, len(val))
		for i, e := range val {
			vs[i] = String(e)
		}
		return vs, nil
	case []interface{}:
		vs := make(Array, len(val))
		for i, e := range val {
			cv, err := NewValue(e)
			if err != nil {
				return nil, err
			}
			vs[i] = cv
		}
		return vs, nil
	case map[string]interface{}:
		names := make([]string, 0, len(val))
		for n := range val {
			names = append(names, n)
		}
		sort.Strings(names)
		ms := make(Struct, len(names))
		for i, n := range names {
			cv, err := NewValue(val[n])
			if err != nil {
				return nil, err
			}
			ms[i] = Member{Name: n, Value: cv}
		}
		return ms, nil
	default:
		return nil, fmt.Errorf("unsupported type: %[1]T with value %[1]v", in)
	}
}

func newInt(i int64) (Int, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("int value out of range: %d", i)
	}
	return Int(i), nil
}
