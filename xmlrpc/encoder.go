package xmlrpc

import (
	"bytes"
	"encoding/base64"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mdzio/go-xmlrpc/model"

	"golang.org/x/net/html/charset"
)

// timeLayout is the wire layout of dateTime.iso8601 values. Existing
// XML-RPC peers expect exactly this shape, not full ISO 8601.
const timeLayout = "20060102T15:04:05"

// Call is one named call, used for packing and unpacking
// system.multicall batches.
type Call struct {
	MethodName string
	Params     []model.Value
}

// Encoder writes XML-RPC documents to an io.Writer. The configuration
// fields must be set before an encode call; each call produces one
// complete document.
type Encoder struct {
	// Encoding is the character encoding for the document. It is
	// written lowercased into the XML declaration and applied to the
	// output bytes. Empty selects utf-8.
	Encoding string

	// ExNil selects the Apache extension element <ex:nil/> for nil
	// values instead of the standard <nil/>.
	ExNil bool

	w io.Writer
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// docWriter collects a document in memory. Nothing reaches the target
// writer before commit, so a failed encode call leaves no partial
// output.
type docWriter struct {
	buf bytes.Buffer
	out io.Writer
}

func (w *docWriter) raw(s string) {
	w.buf.WriteString(s)
}

func (w *docWriter) commit() error {
	_, err := w.out.Write(w.buf.Bytes())
	return err
}

// document resolves the configured character encoding and starts a new
// document with the XML declaration.
func (e *Encoder) document() (*docWriter, error) {
	name := strings.ToLower(strings.TrimSpace(e.Encoding))
	if name == "" {
		name = "utf-8"
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return nil, encodeErrorf("unsupported character encoding: %s", name)
	}
	w := &docWriter{out: enc.NewEncoder().Writer(e.w)}
	w.raw("<?xml version=\"1.0\" encoding=\"" + name + "\"?>\n")
	return w, nil
}

// EncodeResponse writes a methodResponse document with the specified
// value as single parameter.
func (e *Encoder) EncodeResponse(v model.Value) error {
	codecLog.Tracef("Encoding method response")
	w, err := e.document()
	if err != nil {
		return err
	}
	w.raw("<methodResponse><params><param>")
	if err := e.encodeValue(w, v); err != nil {
		return err
	}
	w.raw("</param></params></methodResponse>")
	return w.commit()
}

// EncodeCall writes a methodCall document. Surrounding whitespace of
// the method name is trimmed.
func (e *Encoder) EncodeCall(method string, params []model.Value) error {
	method = strings.TrimSpace(method)
	codecLog.Tracef("Encoding call of method %s", method)
	w, err := e.document()
	if err != nil {
		return err
	}
	w.raw("<methodCall><methodName>" + escape(method) + "</methodName><params>")
	for _, p := range params {
		w.raw("<param>")
		if err := e.encodeValue(w, p); err != nil {
			return err
		}
		w.raw("</param>")
	}
	w.raw("</params></methodCall>")
	return w.commit()
}

// EncodeMulticall packs the calls into a single system.multicall
// request: one parameter holding an array of structs with the members
// methodName and params.
func (e *Encoder) EncodeMulticall(calls []Call) error {
	data := make(model.Array, len(calls))
	for i, c := range calls {
		data[i] = model.Struct{
			{Name: "methodName", Value: model.String(c.MethodName)},
			{Name: "params", Value: model.Array(c.Params)},
		}
	}
	return e.EncodeCall("system.multicall", []model.Value{data})
}

// MulticallCalls converts a generic ordered collection into multicall
// entries. An entry keyed by an integer index whose value is a
// two-element array (method name, params) is unpacked as the call;
// otherwise the key is the method name and the value must be the
// params array.
func MulticallCalls(members []model.Member) ([]Call, error) {
	calls := make([]Call, 0, len(members))
	for _, m := range members {
		if _, err := strconv.Atoi(m.Name); err == nil {
			if pair, ok := m.Value.(model.Array); ok && len(pair) == 2 {
				name, nameOK := pair[0].(model.String)
				params, paramsOK := pair[1].(model.Array)
				if nameOK && paramsOK {
					calls = append(calls, Call{MethodName: string(name), Params: params})
					continue
				}
			}
		}
		params, ok := m.Value.(model.Array)
		if !ok {
			return nil, encodeErrorf("multicall entry %s: params are not an array", m.Name)
		}
		calls = append(calls, Call{MethodName: m.Name, Params: params})
	}
	return calls, nil
}

// EncodeFault writes a complete methodResponse document containing one
// fault.
func (e *Encoder) EncodeFault(code int, message string) error {
	codecLog.Tracef("Encoding fault response (code: %d)", code)
	w, err := e.document()
	if err != nil {
		return err
	}
	w.raw("<methodResponse>")
	if err := e.encodeFault(w, code, message); err != nil {
		return err
	}
	w.raw("</methodResponse>")
	return w.commit()
}

// EncodeFaultBody writes only the <fault> fragment, without XML
// declaration or character transform. The fragment can be composed
// into a multicall response array by a higher layer.
func (e *Encoder) EncodeFaultBody(code int, message string) error {
	w := &docWriter{out: e.w}
	if err := e.encodeFault(w, code, message); err != nil {
		return err
	}
	return w.commit()
}

func (e *Encoder) encodeFault(w *docWriter, code int, message string) error {
	w.raw("<fault>")
	fault := model.Struct{
		{Name: "faultCode", Value: model.Int(code)},
		{Name: "faultString", Value: model.String(message)},
	}
	if err := e.encodeValue(w, fault); err != nil {
		return err
	}
	w.raw("</fault>")
	return nil
}

// encodeValue dispatches on the value variant and emits the wire
// element, recursing depth-first into arrays and structs.
func (e *Encoder) encodeValue(w *docWriter, v model.Value) error {
	w.raw("<value>")
	switch val := v.(type) {
	case model.Nil:
		if e.ExNil {
			w.raw("<ex:nil/>")
		} else {
			w.raw("<nil/>")
		}
	case model.Bool:
		if val {
			w.raw("<boolean>1</boolean>")
		} else {
			w.raw("<boolean>0</boolean>")
		}
	case model.Int:
		w.raw("<int>" + strconv.Itoa(int(val)) + "</int>")
	case model.Double:
		w.raw("<double>" + strconv.FormatFloat(float64(val), 'f', -1, 64) + "</double>")
	case model.String:
		w.raw("<string>" + escape(string(val)) + "</string>")
	case model.CData:
		if val == "" {
			return encodeErrorf("empty CDATA value")
		}
		w.raw("<string><![CDATA[" + cdataBody(string(val)) + "]]></string>")
	case model.Base64:
		if len(val) == 0 {
			return encodeErrorf("empty base64 value")
		}
		w.raw("<base64>" + base64.StdEncoding.EncodeToString(val) + "</base64>")
	case model.DateTime:
		w.raw("<dateTime.iso8601>" + formatTimestamp(int64(val)) + "</dateTime.iso8601>")
	case model.Array:
		w.raw("<array><data>")
		for _, el := range val {
			if err := e.encodeValue(w, el); err != nil {
				return err
			}
		}
		w.raw("</data></array>")
	case model.Struct:
		w.raw("<struct>")
		for _, m := range val {
			w.raw("<member><name>" + escape(m.Name) + "</name>")
			if err := e.encodeValue(w, m.Value); err != nil {
				return err
			}
			w.raw("</member>")
		}
		w.raw("</struct>")
	default:
		return encodeErrorf("unsupported type: %T", v)
	}
	w.raw("</value>")
	return nil
}

// cdataBody splits the CDATA terminator so the block stays
// well-formed. The content is unchanged after XML parsing.
func cdataBody(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}

// formatTimestamp formats epoch seconds for the wire (UTC).
func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(timeLayout)
}
