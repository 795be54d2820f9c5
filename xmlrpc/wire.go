package xmlrpc

import "encoding/xml"

// Wire model for decoding. Fields are pointers so the decoder can tell
// an absent child element from an empty one; a <value> must have
// exactly one child element.

type methodCall struct {
	XMLName    xml.Name    `xml:"methodCall"`
	MethodName string      `xml:"methodName"`
	Params     *wireParams `xml:"params"`
}

type methodResponse struct {
	XMLName xml.Name    `xml:"methodResponse"`
	Params  *wireParams `xml:"params"`
	Fault   *wireValue  `xml:"fault>value"`
}

type wireParams struct {
	Param []*wireParam `xml:"param"`
}

type wireParam struct {
	Value *wireValue `xml:"value"`
}

type wireValue struct {
	I4       *string     `xml:"i4"`
	Int      *string     `xml:"int"`
	Boolean  *string     `xml:"boolean"`
	Str      *string     `xml:"string"`
	Double   *string     `xml:"double"`
	DateTime *string     `xml:"dateTime.iso8601"`
	Base64   *string     `xml:"base64"`
	Struct   *wireStruct `xml:"struct"`
	Array    *wireArray  `xml:"array"`
	// Nil matches <nil/> in any namespace, which covers the Apache
	// extension <ex:nil/> as well.
	Nil *struct{} `xml:"nil"`
	// Other collects child elements with unrecognized names.
	Other []wireAny `xml:",any"`
}

type wireStruct struct {
	Members []*wireMember `xml:"member"`
}

type wireMember struct {
	Name  string     `xml:"name"`
	Value *wireValue `xml:"value"`
}

type wireArray struct {
	Data []*wireValue `xml:"data>value"`
}

type wireAny struct {
	XMLName xml.Name
}

// children counts the child elements of the value.
func (v *wireValue) children() int {
	n := len(v.Other)
	for _, p := range []*string{v.I4, v.Int, v.Boolean, v.Str, v.Double, v.DateTime, v.Base64} {
		if p != nil {
			n++
		}
	}
	if v.Struct != nil {
		n++
	}
	if v.Array != nil {
		n++
	}
	if v.Nil != nil {
		n++
	}
	return n
}
