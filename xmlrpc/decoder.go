package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mdzio/go-xmlrpc/model"

	"golang.org/x/net/html/charset"
)

// timeLayouts are the accepted dateTime.iso8601 layouts: the exact
// encoder format first, then common ISO 8601 variants seen from other
// implementations.
var timeLayouts = []string{
	timeLayout,
	"2006-01-02T15:04:05",
	"20060102T15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
}

// Request is a decoded method call. For a system.multicall request
// Multicall is populated instead of Params; nil entries mark boxcarred
// calls missing a required member, with positions preserved.
type Request struct {
	MethodName string
	Params     []model.Value
	Multicall  []*Call
}

// Decoder parses XML-RPC documents into model values. The zero value
// is ready for use. The fault flag is per instance, so one Decoder
// should serve one call/response pair at a time.
type Decoder struct {
	fault bool
}

// IsFault returns whether the most recently decoded response was a
// fault. Every decode call resets the flag.
func (d *Decoder) IsFault() bool {
	return d.fault
}

// DecodeResponse parses a methodResponse document. A fault response is
// returned as a *MethodError and sets the fault flag; otherwise the
// single parameter value is returned.
func (d *Decoder) DecodeResponse(r io.Reader) (model.Value, error) {
	d.fault = false
	resp := &methodResponse{}
	if err := unmarshalDoc(r, resp); err != nil {
		return nil, mapXMLError(err, "not a valid response")
	}
	if resp.Fault != nil {
		fv, err := decodeValue(resp.Fault)
		if err != nil {
			return nil, err
		}
		q := model.Q(fv)
		code := q.Key("faultCode").Int()
		message := q.Key("faultString").String()
		if q.Err() != nil {
			return nil, decodeErrorf("not a valid response: %v", q.Err())
		}
		codecLog.Tracef("Decoded fault response (code: %d)", code)
		d.fault = true
		return nil, &MethodError{Code: code, Message: message}
	}
	if resp.Params == nil || len(resp.Params.Param) != 1 {
		return nil, &DecodeError{Message: "not a valid response"}
	}
	codecLog.Tracef("Decoded method response")
	return decodeValue(resp.Params.Param[0].Value)
}

// DecodeCall parses a methodCall document. A system.multicall request
// is unpacked into Request.Multicall.
func (d *Decoder) DecodeCall(r io.Reader) (*Request, error) {
	d.fault = false
	call := &methodCall{}
	if err := unmarshalDoc(r, call); err != nil {
		return nil, mapXMLError(err, "incomprehensible request")
	}
	method := strings.TrimSpace(call.MethodName)
	if method == "" {
		return nil, &DecodeError{Message: "incomprehensible request"}
	}
	codecLog.Tracef("Decoded call of method %s", method)
	if method == "system.multicall" {
		calls, err := decodeMulticallParams(call.Params)
		if err != nil {
			return nil, err
		}
		return &Request{MethodName: method, Multicall: calls}, nil
	}
	params, err := decodeParams(call.Params)
	if err != nil {
		return nil, err
	}
	return &Request{MethodName: method, Params: params}, nil
}

// DecodeMulticall parses a methodCall document that must be a
// system.multicall request and returns its unpacked batch.
func (d *Decoder) DecodeMulticall(r io.Reader) ([]*Call, error) {
	d.fault = false
	call := &methodCall{}
	if err := unmarshalDoc(r, call); err != nil {
		return nil, mapXMLError(err, "incomprehensible request")
	}
	method := strings.TrimSpace(call.MethodName)
	if method == "" {
		return nil, &DecodeError{Message: "incomprehensible request"}
	}
	if method != "system.multicall" {
		return nil, decodeErrorf("not a system.multicall request: %s", method)
	}
	return decodeMulticallParams(call.Params)
}

func unmarshalDoc(r io.Reader, doc interface{}) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec.Decode(doc)
}

// mapXMLError classifies a failure of the XML layer: unparseable bytes
// are reported as invalid XML-RPC, a parseable document with the wrong
// root shape with the message for the requested decode.
func mapXMLError(err error, shape string) error {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return decodeErrorf("not valid XML-RPC: %v", err)
	}
	return &DecodeError{Message: shape}
}

func decodeParams(ps *wireParams) ([]model.Value, error) {
	if ps == nil {
		return nil, nil
	}
	out := make([]model.Value, len(ps.Param))
	for i, p := range ps.Param {
		v, err := decodeValue(p.Value)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// decodeMulticallParams unpacks the single array-of-structs parameter
// of a system.multicall. A malformed entry does not abort the batch:
// its slot stays nil so positions are preserved.
func decodeMulticallParams(ps *wireParams) ([]*Call, error) {
	if ps == nil || len(ps.Param) != 1 {
		return nil, &DecodeError{Message: "invalid multicall parameters"}
	}
	v, err := decodeValue(ps.Param[0].Value)
	if err != nil {
		return nil, err
	}
	batch, ok := v.(model.Array)
	if !ok {
		return nil, &DecodeError{Message: "invalid multicall parameters"}
	}
	calls := make([]*Call, len(batch))
	for i, entry := range batch {
		st, ok := entry.(model.Struct)
		if !ok {
			continue
		}
		nameValue, nameFound := st.Get("methodName")
		paramsValue, paramsFound := st.Get("params")
		if !nameFound || !paramsFound {
			continue
		}
		name, nameOK := nameValue.(model.String)
		params, paramsOK := paramsValue.(model.Array)
		if !nameOK || !paramsOK {
			continue
		}
		calls[i] = &Call{MethodName: string(name), Params: params}
	}
	return calls, nil
}

// decodeValue dispatches on the single child element of a <value>
// node.
func decodeValue(v *wireValue) (model.Value, error) {
	if v == nil || v.children() != 1 {
		return nil, &DecodeError{Message: "invalid value element"}
	}
	switch {
	case v.Nil != nil:
		return model.Nil{}, nil
	case v.I4 != nil:
		return decodeInt(*v.I4)
	case v.Int != nil:
		return decodeInt(*v.Int)
	case v.Boolean != nil:
		t := strings.TrimSpace(*v.Boolean)
		return model.Bool(t == "1" || strings.EqualFold(t, "true")), nil
	case v.Double != nil:
		d, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, decodeErrorf("invalid double: %s", *v.Double)
		}
		return model.Double(d), nil
	case v.Str != nil:
		return model.String(*v.Str), nil
	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(stripSpace(*v.Base64))
		if err != nil {
			return nil, decodeErrorf("invalid base64 value: %v", err)
		}
		return model.Base64(b), nil
	case v.DateTime != nil:
		return decodeTimestamp(strings.TrimSpace(*v.DateTime))
	case v.Array != nil:
		vs := make(model.Array, len(v.Array.Data))
		for i, el := range v.Array.Data {
			cv, err := decodeValue(el)
			if err != nil {
				return nil, err
			}
			vs[i] = cv
		}
		return vs, nil
	case v.Struct != nil:
		ms := make(model.Struct, len(v.Struct.Members))
		for i, m := range v.Struct.Members {
			cv, err := decodeValue(m.Value)
			if err != nil {
				return nil, err
			}
			ms[i] = model.Member{Name: m.Name, Value: cv}
		}
		return ms, nil
	default:
		return nil, decodeErrorf("invalid value type: %s", v.Other[0].XMLName.Local)
	}
}

func decodeInt(s string) (model.Value, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return nil, decodeErrorf("invalid int: %s", s)
	}
	return model.Int(i), nil
}

func decodeTimestamp(s string) (model.Value, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return model.DateTime(t.Unix()), nil
		}
	}
	return nil, decodeErrorf("invalid dateTime value: %s", s)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
