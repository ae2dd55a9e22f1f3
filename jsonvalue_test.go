package flattenjson

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeValue_ScalarsAndOrder(t *testing.T) {
	t.Parallel()

	const doc = `{"b": 1, "a": "x", "c": [true, null, 3.5]}`
	dec := NewDecoder(strings.NewReader(doc))

	v, err := DecodeValue(dec)
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if !v.IsObject() {
		t.Fatalf("expected object, got Kind=%d", v.Kind)
	}

	var gotKeys []string
	for pair := v.Obj.Oldest(); pair != nil; pair = pair.Next() {
		gotKeys = append(gotKeys, pair.Key)
	}
	wantKeys := []string{"b", "a", "c"}
	if diff := cmp.Diff(wantKeys, gotKeys); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}

	cArr, _ := v.Obj.Get("c")
	if len(cArr.Arr) != 3 {
		t.Fatalf("len(c) = %d, want 3", len(cArr.Arr))
	}
	if cArr.Arr[0].Kind != KindBool || !cArr.Arr[0].Bool {
		t.Errorf("c[0] = %+v, want true", cArr.Arr[0])
	}
	if cArr.Arr[1].Kind != KindNull {
		t.Errorf("c[1].Kind = %d, want KindNull", cArr.Arr[1].Kind)
	}
	if cArr.Arr[2].Kind != KindNumber || cArr.Arr[2].Num.String() != "3.5" {
		t.Errorf("c[2] = %+v, want number 3.5", cArr.Arr[2])
	}
}

func TestDecodeValue_NestedObjectOrderPreserved(t *testing.T) {
	t.Parallel()

	const doc = `{"z": {"second": 2, "first": 1}, "a": 1}`
	v, err := DecodeValue(NewDecoder(strings.NewReader(doc)))
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}

	z, _ := v.Obj.Get("z")
	var keys []string
	for pair := z.Obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if diff := cmp.Diff([]string{"second", "first"}, keys); diff != "" {
		t.Errorf("nested key order mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONValue_JSONString_RoundTripsCompactForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "object", doc: `{"a": 1, "b": [1,2,3]}`, want: `{"a":1,"b":[1,2,3]}`},
		{name: "string with quote", doc: `{"s": "a\"b"}`, want: `{"s":"a\"b"}`},
		{name: "array of mixed types", doc: `[1, "x", true, null]`, want: `[1,"x",true,null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := DecodeValue(NewDecoder(strings.NewReader(tt.doc)))
			if err != nil {
				t.Fatalf("DecodeValue() error = %v", err)
			}
			if got := v.JSONString(); got != tt.want {
				t.Errorf("JSONString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeValue_MalformedInput(t *testing.T) {
	t.Parallel()

	_, err := DecodeValue(NewDecoder(strings.NewReader(`{"a": }`)))
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}
