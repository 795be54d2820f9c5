package xmlrpc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mdzio/go-xmlrpc/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/text/encoding/charmap"
)

const xmlDecl = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

func encodeResponse(t *testing.T, v model.Value) string {
	t.Helper()
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.EncodeResponse(v))
	return buf.String()
}

func TestEncodeValue(t *testing.T) {
	cases := []struct {
		name string
		in   model.Value
		want string
	}{
		{
			"nil",
			model.Nil{},
			"<value><nil/></value>",
		},
		{
			"booleanTrue",
			model.Bool(true),
			"<value><boolean>1</boolean></value>",
		},
		{
			"booleanFalse",
			model.Bool(false),
			"<value><boolean>0</boolean></value>",
		},
		{
			"int",
			model.Int(-42),
			"<value><int>-42</int></value>",
		},
		{
			"double",
			model.Double(123.456),
			"<value><double>123.456</double></value>",
		},
		{
			"string",
			model.String("abc"),
			"<value><string>abc</string></value>",
		},
		{
			"stringEscaped",
			model.String("100€ & <tag>"),
			"<value><string>100&#8364; &#38; &#60;tag&#62;</string></value>",
		},
		{
			"stringQuote",
			model.String(`a"b`),
			"<value><string>a&#34;b</string></value>",
		},
		{
			"unknownEntityDropped",
			model.String("a&bogus;b"),
			"<value><string>ab</string></value>",
		},
		{
			"namedEntityRewritten",
			model.String("a&euro;b"),
			"<value><string>a&#8364;b</string></value>",
		},
		{
			"base64",
			model.Base64("Hello World!"),
			"<value><base64>SGVsbG8gV29ybGQh</base64></value>",
		},
		{
			"dateTime",
			model.DateTime(1700000000),
			"<value><dateTime.iso8601>20231114T22:13:20</dateTime.iso8601></value>",
		},
		{
			"cdata",
			model.CData("a < b & c"),
			"<value><string><![CDATA[a < b & c]]></string></value>",
		},
		{
			"array",
			model.Array{model.Int(4), model.String("abc")},
			"<value><array><data><value><int>4</int></value><value><string>abc</string></value></data></array></value>",
		},
		{
			"emptyArray",
			model.Array{},
			"<value><array><data></data></array></value>",
		},
		{
			"struct",
			model.Struct{
				{Name: "Field1", Value: model.Int(123)},
				{Name: "Field2", Value: model.String("abc")},
			},
			"<value><struct><member><name>Field1</name><value><int>123</int></value></member><member><name>Field2</name><value><string>abc</string></value></member></struct></value>",
		},
		{
			"nested",
			model.Array{
				model.Struct{
					{Name: "Field", Value: model.Array{model.Bool(true)}},
				},
			},
			"<value><array><data><value><struct><member><name>Field</name><value><array><data><value><boolean>1</boolean></value></data></array></value></member></struct></value></data></array></value>",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			want := xmlDecl + "<methodResponse><params><param>" + c.want + "</param></params></methodResponse>"
			assert.Equal(t, want, encodeResponse(t, c.in))
		})
	}
}

func TestEncodeNilMode(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.ExNil = true
	require.NoError(t, e.EncodeResponse(model.Nil{}))
	assert.Contains(t, buf.String(), "<value><ex:nil/></value>")
}

func TestEncodeCall(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.EncodeCall("  add ", []model.Value{model.Int(1), model.Int(2)}))
	want := xmlDecl + "<methodCall><methodName>add</methodName><params>" +
		"<param><value><int>1</int></value></param>" +
		"<param><value><int>2</int></value></param>" +
		"</params></methodCall>"
	assert.Equal(t, want, buf.String())
}

func TestEncodeCallNoParams(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.EncodeCall("noParameters", nil))
	want := xmlDecl + "<methodCall><methodName>noParameters</methodName><params></params></methodCall>"
	assert.Equal(t, want, buf.String())
}

func TestEncodeMulticall(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	err := e.EncodeMulticall([]Call{
		{MethodName: "a.b", Params: []model.Value{model.Int(1), model.Int(2)}},
	})
	require.NoError(t, err)
	want := xmlDecl + "<methodCall><methodName>system.multicall</methodName><params><param>" +
		"<value><array><data><value><struct>" +
		"<member><name>methodName</name><value><string>a.b</string></value></member>" +
		"<member><name>params</name><value><array><data>" +
		"<value><int>1</int></value><value><int>2</int></value>" +
		"</data></array></value></member>" +
		"</struct></value></data></array></value>" +
		"</param></params></methodCall>"
	assert.Equal(t, want, buf.String())
}

func TestMulticallCalls(t *testing.T) {
	calls, err := MulticallCalls([]model.Member{
		{
			// positional pair: index key, (method, params) value
			Name: "0",
			Value: model.Array{
				model.String("m.a"),
				model.Array{model.Int(1)},
			},
		},
		{
			Name:  "b.c",
			Value: model.Array{model.Int(2)},
		},
	})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, Call{MethodName: "m.a", Params: []model.Value{model.Int(1)}}, calls[0])
	assert.Equal(t, Call{MethodName: "b.c", Params: []model.Value{model.Int(2)}}, calls[1])

	_, err = MulticallCalls([]model.Member{
		{Name: "a.b", Value: model.String("not params")},
	})
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)
}

func TestEncodeFault(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.EncodeFault(300, "Invalid parameters"))
	want := xmlDecl + "<methodResponse><fault><value><struct>" +
		"<member><name>faultCode</name><value><int>300</int></value></member>" +
		"<member><name>faultString</name><value><string>Invalid parameters</string></value></member>" +
		"</struct></value></fault></methodResponse>"
	assert.Equal(t, want, buf.String())
}

func TestEncodeFaultBody(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	require.NoError(t, e.EncodeFaultBody(-1, "unknown method"))
	want := "<fault><value><struct>" +
		"<member><name>faultCode</name><value><int>-1</int></value></member>" +
		"<member><name>faultString</name><value><string>unknown method</string></value></member>" +
		"</struct></value></fault>"
	assert.Equal(t, want, buf.String())
}

func TestEncodeErrors(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	err := e.EncodeResponse(model.Base64(nil))
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)

	buf.Reset()
	err = e.EncodeResponse(model.CData(""))
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)

	buf.Reset()
	err = e.EncodeResponse(nil)
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)
	assert.Contains(t, err.(*EncodeError).Message, "unsupported type")

	buf.Reset()
	e.Encoding = "no-such-charset"
	err = e.EncodeResponse(model.Int(1))
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)
}

func TestEncodeErrorNoPartialOutput(t *testing.T) {
	// a large valid prefix must not leak to the writer when a later
	// value fails
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	err := e.EncodeResponse(model.Array{
		model.String(strings.Repeat("x", 8192)),
		model.Base64(nil),
	})
	require.Error(t, err)
	assert.IsType(t, &EncodeError{}, err)
	assert.Zero(t, buf.Len())
}

func TestEncodeCharset(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	e.Encoding = "ISO-8859-1"
	// CDATA bypasses entity escaping, so the umlauts reach the
	// character transform.
	require.NoError(t, e.EncodeResponse(model.CData("äöü")))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?>\n")))
	assert.True(t, bytes.Contains(out, []byte{0xe4, 0xf6, 0xfc}))

	decoded, err := charmap.ISO8859_1.NewDecoder().String(string(out))
	require.NoError(t, err)
	assert.Contains(t, decoded, "<![CDATA[äöü]]>")
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "20231114T22:13:20", formatTimestamp(1700000000))
	assert.Equal(t, "19700101T00:00:00", formatTimestamp(0))
}

func TestCDataTerminatorSplit(t *testing.T) {
	out := encodeResponse(t, model.CData("a]]>b"))
	assert.Contains(t, out, "<![CDATA[a]]]]><![CDATA[>b]]>")
	assert.Equal(t, 1, strings.Count(out, "a]]]]>"))
}
