package flattenjson

import (
	"encoding/json"
	"testing"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    *JSONValue
		want     string
		wantType string
	}{
		{name: "plain string", value: NewString("hello"), want: "hello", wantType: TypeText},
		{name: "date", value: NewString("2024-01-15"), want: "2024-01-15", wantType: TypeDate},
		{
			name:     "datetime with offset",
			value:    NewString("2024-01-15T10:30:00-05:00"),
			want:     "2024-01-15T10:30:00-05:00",
			wantType: TypeDate,
		},
		{name: "null", value: NewNull(), want: "", wantType: TypeNull},
		{name: "number", value: NewNumber(json.Number("42")), want: "42", wantType: TypeNumber},
		{name: "true", value: NewBool(true), want: "true", wantType: TypeBoolean},
		{name: "false", value: NewBool(false), want: "false", wantType: TypeBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			meta := &FieldMeta{}
			got := EncodeValue(tt.value, meta)
			if got != tt.want {
				t.Errorf("EncodeValue() = %q, want %q", got, tt.want)
			}
			if meta.Type != tt.wantType {
				t.Errorf("meta.Type = %q, want %q", meta.Type, tt.wantType)
			}
		})
	}
}

func TestEncodeValue_StickyText(t *testing.T) {
	t.Parallel()

	meta := &FieldMeta{}
	EncodeValue(NewString("2024-01-15"), meta)
	if meta.Type != TypeDate {
		t.Fatalf("meta.Type after date = %q, want %q", meta.Type, TypeDate)
	}

	EncodeValue(NewString("not a date"), meta)
	if meta.Type != TypeText {
		t.Fatalf("meta.Type after text observation = %q, want %q", meta.Type, TypeText)
	}

	EncodeValue(NewNumber(json.Number("7")), meta)
	if meta.Type != TypeText {
		t.Errorf("meta.Type after later number observation = %q, want sticky %q", meta.Type, TypeText)
	}

	EncodeValue(NewNull(), meta)
	if meta.Type != TypeText {
		t.Errorf("meta.Type after later null observation = %q, want sticky %q", meta.Type, TypeText)
	}
}

func TestEncodeValue_StringifiedCollectionObservesText(t *testing.T) {
	t.Parallel()

	meta := &FieldMeta{}
	arr := &JSONValue{Kind: KindArray, Arr: []*JSONValue{NewNumber(json.Number("1")), NewNumber(json.Number("2"))}}
	got := EncodeValue(arr, meta)
	if got != "[1,2]" {
		t.Errorf("EncodeValue(array) = %q, want %q", got, "[1,2]")
	}
	if meta.Type != TypeText {
		t.Errorf("meta.Type = %q, want %q", meta.Type, TypeText)
	}
}
