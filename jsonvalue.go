package flattenjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	omap "github.com/wk8/go-ordered-map/v2"
)

// Kind tags the dynamic type of a JSONValue. Dispatch on Kind is a tagged
// match, never subtyping: a decoded JSON document is one of exactly these
// six shapes.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// JSONObject is the order-preserving representation of a JSON object.
// encoding/json decodes objects into plain Go maps, which have no
// defined iteration order; the flattening algorithm depends on seeing
// object members in their original source order (spec: "iteration order
// over object members follows the JSON source order"), so every object
// in a decoded document is held in one of these instead of a bare map.
type JSONObject = *omap.OrderedMap[string, *JSONValue]

// JSONValue is a decoded JSON value, tagged by Kind. Only the field(s)
// matching Kind are meaningful.
type JSONValue struct {
	Kind Kind
	Bool bool
	Num  json.Number
	Str  string
	Arr  []*JSONValue
	Obj  JSONObject
}

// NewNull, NewBool, NewNumber and NewString build scalar JSONValues.
func NewNull() *JSONValue              { return &JSONValue{Kind: KindNull} }
func NewBool(b bool) *JSONValue        { return &JSONValue{Kind: KindBool, Bool: b} }
func NewNumber(n json.Number) *JSONValue { return &JSONValue{Kind: KindNumber, Num: n} }
func NewString(s string) *JSONValue    { return &JSONValue{Kind: KindString, Str: s} }

// NewObject builds an empty object JSONValue.
func NewObject() *JSONValue {
	return &JSONValue{Kind: KindObject, Obj: omap.New[string, *JSONValue]()}
}

// IsObject reports whether the value is a JSON object.
func (v *JSONValue) IsObject() bool { return v != nil && v.Kind == KindObject }

// IsString reports whether the value is a JSON string.
func (v *JSONValue) IsString() bool { return v != nil && v.Kind == KindString }

// DecodeValue reads exactly one JSON value (object, array, or scalar)
// from dec, preserving object key order. It is the building block both
// NDJSONFrontEnd (decode in a loop) and SAXFrontEnd (decode each matched
// subtree) use.
func DecodeValue(dec *json.Decoder) (*JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeTokenValue(dec, tok)
}

func decodeTokenValue(dec *json.Decoder, tok json.Token) (*JSONValue, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case bool:
		return NewBool(t), nil
	case json.Number:
		return NewNumber(t), nil
	case string:
		return NewString(t), nil
	case nil:
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v (%T)", tok, tok)
	}
}

func decodeObject(dec *json.Decoder) (*JSONValue, error) {
	obj := omap.New[string, *JSONValue]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := DecodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, val)
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return &JSONValue{Kind: KindObject, Obj: obj}, nil
}

func decodeArray(dec *json.Decoder) (*JSONValue, error) {
	var arr []*JSONValue
	for dec.More() {
		val, err := DecodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	// Consume the closing ']'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return &JSONValue{Kind: KindArray, Arr: arr}, nil
}

// NewDecoder returns a json.Decoder configured the way every front end in
// this package needs: numbers kept in their original lexical form so
// ValueCoder can round-trip them without precision loss (spec Non-goal:
// "preserving original JSON numeric precision" is explicitly not
// guaranteed, but UseNumber at least avoids gratuitous float64 rounding
// on the common path).
func NewDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// MarshalJSON implements json.Marshaler, producing the standard compact
// JSON serialization of the value. The Flattener uses this to stringify
// heterogeneous arrays, and EncodeValue uses it for any array or object
// value that reaches it: both cases must reproduce exactly what encoding/json.Marshal would have
// produced had the value never been decoded into a JSONValue.
func (v *JSONValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *JSONValue) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.Num.String())
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.Arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		i := 0
		for pair := v.Obj.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(pair.Key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := pair.Value.writeJSON(buf); err != nil {
				return err
			}
			i++
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown JSONValue kind %d", v.Kind)
	}
	return nil
}

// JSONString returns the compact JSON serialization of the value.
func (v *JSONValue) JSONString() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}
