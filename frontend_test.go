package flattenjson

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func drain(t *testing.T, ch <-chan *JSONValue) []*JSONValue {
	t.Helper()
	var out []*JSONValue
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func TestNDJSONFrontEnd_Run(t *testing.T) {
	t.Parallel()

	const input = "{\"a\": 1}\n{\"a\": 2}\n\n{\"a\": 3}\n"
	front := NewNDJSONFrontEnd(strings.NewReader(input))

	ch := make(chan *JSONValue, 10)
	if err := front.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	values := drain(t, ch)
	if len(values) != 3 {
		t.Fatalf("len(values) = %d, want 3", len(values))
	}
	for i, want := range []string{"1", "2", "3"} {
		got, _ := values[i].Obj.Get("a")
		if got.Num.String() != want {
			t.Errorf("values[%d].a = %q, want %q", i, got.Num.String(), want)
		}
	}
}

func TestNDJSONFrontEnd_Run_GzipCompressedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "records.ndjson.gz")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	gw := gzip.NewWriter(f)
	if _, err := gw.Write([]byte(`{"a": 1}` + "\n")); err != nil {
		t.Fatalf("gzip Write() error = %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	front := NewNDJSONFileFrontEnd(path)
	ch := make(chan *JSONValue, 10)
	if err := front.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	values := drain(t, ch)
	if len(values) != 1 {
		t.Fatalf("len(values) = %d, want 1", len(values))
	}
	got, _ := values[0].Obj.Get("a")
	if got.Num.String() != "1" {
		t.Errorf("values[0].a = %q, want %q", got.Num.String(), "1")
	}
}

func TestNDJSONFrontEnd_Run_ExplicitGzipReader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(`{"a": 1}` + "\n")); err != nil {
		t.Fatalf("gzip Write() error = %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}

	front, err := NewNDJSONCompressedFrontEnd(&buf, "gzip")
	if err != nil {
		t.Fatalf("NewNDJSONCompressedFrontEnd() error = %v", err)
	}

	ch := make(chan *JSONValue, 10)
	if err := front.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	values := drain(t, ch)
	if len(values) != 1 {
		t.Fatalf("len(values) = %d, want 1", len(values))
	}
	got, _ := values[0].Obj.Get("a")
	if got.Num.String() != "1" {
		t.Errorf("values[0].a = %q, want %q", got.Num.String(), "1")
	}
}

func TestNewNDJSONCompressedFrontEnd_UnknownScheme(t *testing.T) {
	t.Parallel()

	if _, err := NewNDJSONCompressedFrontEnd(strings.NewReader(""), "lz4"); !errors.Is(err, ErrUnknownCompression) {
		t.Errorf("NewNDJSONCompressedFrontEnd() error = %v, want ErrUnknownCompression", err)
	}
}

func TestSAXFrontEnd_Run_ExtractsArrayElements(t *testing.T) {
	t.Parallel()

	const doc = `{"meta": {"total": 2}, "data": {"records": [{"id": 1}, {"id": 2}]}}`
	front, err := NewSAXFrontEnd(strings.NewReader(doc), []string{"data", "records"})
	if err != nil {
		t.Fatalf("NewSAXFrontEnd() error = %v", err)
	}

	ch := make(chan *JSONValue, 10)
	if err := front.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	values := drain(t, ch)
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
	var ids []string
	for _, v := range values {
		id, _ := v.Obj.Get("id")
		ids = append(ids, id.Num.String())
	}
	if diff := cmp.Diff([]string{"1", "2"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSAXFrontEnd_Run_ExtractsSingleObject(t *testing.T) {
	t.Parallel()

	const doc = `{"wrapper": {"payload": {"id": 7, "name": "solo"}}}`
	front, err := NewSAXFrontEnd(strings.NewReader(doc), []string{"wrapper", "payload"})
	if err != nil {
		t.Fatalf("NewSAXFrontEnd() error = %v", err)
	}

	ch := make(chan *JSONValue, 10)
	if err := front.Run(context.Background(), ch); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	values := drain(t, ch)
	if len(values) != 1 {
		t.Fatalf("len(values) = %d, want 1", len(values))
	}
	id, _ := values[0].Obj.Get("id")
	if id.Num.String() != "7" {
		t.Errorf("id = %q, want %q", id.Num.String(), "7")
	}
}

func TestNewSAXFrontEnd_EmptySelector(t *testing.T) {
	t.Parallel()

	_, err := NewSAXFrontEnd(strings.NewReader(`{}`), nil)
	if err != ErrEmptySelector {
		t.Errorf("err = %v, want ErrEmptySelector", err)
	}
}

func TestIterableFrontEnd_PushAndClose(t *testing.T) {
	t.Parallel()

	front := NewIterableFrontEnd()
	ch := make(chan *JSONValue, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = front.Run(context.Background(), ch)
	}()

	if err := front.Push([]byte(`{"a": 1}`)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := front.Push([]byte(`{"a": 2}`)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	front.Close()
	wg.Wait()

	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}
	values := drain(t, ch)
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
}

func TestIterableFrontEnd_WithLocker_BracketsDecode(t *testing.T) {
	t.Parallel()

	var locked, unlocked int
	locker := &countingLocker{onLock: func() { locked++ }, onUnlock: func() { unlocked++ }}
	front := NewIterableFrontEnd(WithLocker(locker))
	ch := make(chan *JSONValue, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = front.Run(context.Background(), ch)
	}()

	if err := front.Push([]byte(`{"a": 1}`)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	front.Close()
	wg.Wait()
	drain(t, ch)

	if locked != 1 || unlocked != 1 {
		t.Errorf("locked=%d unlocked=%d, want 1 and 1", locked, unlocked)
	}
}

type countingLocker struct {
	onLock, onUnlock func()
}

func (c *countingLocker) Lock()   { c.onLock() }
func (c *countingLocker) Unlock() { c.onUnlock() }
