package flattenjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// FrontEnd streams parsed top-level JSON values to out, closing out when
// done (spec.md section 6's three input contracts). Run is the producer
// side of the Pipeline; it owns out exclusively until it returns.
type FrontEnd interface {
	Run(ctx context.Context, out chan<- *JSONValue) error
}

// NDJSONFrontEnd reads a byte stream of concatenated top-level JSON
// values, separated by optional whitespace, decoding each independently.
// Grounded on compression.go's compressionFactory for transparent
// gzip/bzip2/xz/zstd decompression when reading from a path.
type NDJSONFrontEnd struct {
	reader      io.Reader
	path        string
	compression compressionType
	decompress  bool
}

// NewNDJSONFrontEnd wraps an already-open reader; no decompression
// sniffing is attempted since there is no file extension to inspect.
func NewNDJSONFrontEnd(r io.Reader) *NDJSONFrontEnd {
	return &NDJSONFrontEnd{reader: r}
}

// NewNDJSONFileFrontEnd opens path on Run and transparently decompresses
// it if its extension is recognized (.gz, .bz2, .xz, .zst).
func NewNDJSONFileFrontEnd(path string) *NDJSONFrontEnd {
	return &NDJSONFrontEnd{path: path}
}

// NewNDJSONCompressedFrontEnd wraps an already-open reader whose contents
// are compressed with the named scheme ("gzip", "bzip2", "xz", "zstd", or
// "none"), for callers that know the encoding up front (e.g. an HTTP
// response's Content-Encoding) but have no path to sniff an extension
// from.
func NewNDJSONCompressedFrontEnd(r io.Reader, compression string) (*NDJSONFrontEnd, error) {
	ct, err := parseCompressionType(compression)
	if err != nil {
		return nil, err
	}
	return &NDJSONFrontEnd{reader: r, compression: ct, decompress: true}, nil
}

// Run implements FrontEnd.
func (fe *NDJSONFrontEnd) Run(ctx context.Context, out chan<- *JSONValue) error {
	defer close(out)

	reader := fe.reader
	factory := newCompressionFactory()
	switch {
	case fe.path != "":
		r, cleanup, err := factory.createReaderForFile(fe.path)
		if err != nil {
			return newStageError("io", "", err)
		}
		defer cleanup() //nolint:errcheck // best-effort close on the read path
		reader = r
	case fe.decompress:
		r, cleanup, err := factory.createReaderFromReader(fe.reader, fe.compression)
		if err != nil {
			return newStageError("io", "", err)
		}
		defer cleanup() //nolint:errcheck // best-effort close on the read path
		reader = r
	}

	dec := NewDecoder(reader)
	recordNum := 0
	for dec.More() {
		recordNum++
		v, err := DecodeValue(dec)
		if err != nil {
			return newParseError(recordNum, -1, "malformed JSON value", err)
		}
		select {
		case out <- v:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// SAXFrontEnd implements single-root extraction (spec.md section 6): a
// byte stream containing one JSON document, and a selector path
// identifying an array or object within it whose element subtrees are
// streamed as individual records. The matched subtree is captured as
// raw JSON and forwarded through a synthetic newline-delimited sink,
// exactly as the spec describes, rather than decoded in place.
type SAXFrontEnd struct {
	reader   io.Reader
	selector []string
}

// NewSAXFrontEnd builds a SAXFrontEnd reading doc and extracting the
// subtree at selector (e.g. []string{"data", "records"}).
func NewSAXFrontEnd(doc io.Reader, selector []string) (*SAXFrontEnd, error) {
	if len(selector) == 0 {
		return nil, ErrEmptySelector
	}
	return &SAXFrontEnd{reader: doc, selector: selector}, nil
}

// Run implements FrontEnd.
func (fe *SAXFrontEnd) Run(ctx context.Context, out chan<- *JSONValue) error {
	defer close(out)

	sink := &ndjsonSink{ctx: ctx, out: out}
	dec := json.NewDecoder(fe.reader)
	if _, err := fe.descend(dec, fe.selector, sink); err != nil {
		return newParseError(0, -1, "malformed JSON document", err)
	}
	return sink.flush()
}

// descend walks one object level looking for remaining[0]. It reports
// matched=true once the full selector has been found and its subtree
// streamed, at which point the caller stops walking the rest of the
// document; single-root extraction only ever targets one subtree.
func (fe *SAXFrontEnd) descend(dec *json.Decoder, remaining []string, sink *ndjsonSink) (matched bool, err error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return false, fmt.Errorf("selector path expects an object, found %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return false, err
		}
		key, _ := keyTok.(string)
		if key != remaining[0] {
			if err := skipValue(dec); err != nil {
				return false, err
			}
			continue
		}
		if len(remaining) == 1 {
			if err := fe.streamMatch(dec, sink); err != nil {
				return false, err
			}
			return true, nil
		}
		return fe.descend(dec, remaining[1:], sink)
	}
	_, err = dec.Token() // consume closing '}'
	return false, err
}

// streamMatch decodes the value at the current position (an array or a
// single object) and pushes each element subtree into sink.
func (fe *SAXFrontEnd) streamMatch(dec *json.Decoder, sink *ndjsonSink) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return err
		}
		for _, e := range elems {
			if err := sink.push(e); err != nil {
				return err
			}
		}
		return nil
	}
	return sink.push(trimmed)
}

// skipValue discards the next complete JSON value without materializing
// it, keeping the decoder positioned after it.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil
	}
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil { // key
				return err
			}
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token() // consume closing delim
	return err
}

// ndjsonSink accumulates bytes from matched subtrees and forwards one
// decoded JSONValue per newline-delimited document, mirroring spec.md
// section 6's synthetic-sink description exactly: push appends a
// document, compacted onto a single line, plus a trailing newline and
// decodes it back out immediately, so every pushed document is
// newline-complete on arrival.
type ndjsonSink struct {
	ctx context.Context
	out chan<- *JSONValue
	buf bytes.Buffer
}

func (s *ndjsonSink) push(doc []byte) error {
	if err := json.Compact(&s.buf, doc); err != nil {
		return err
	}
	s.buf.WriteByte('\n')
	return s.drain()
}

func (s *ndjsonSink) drain() error {
	for {
		line, err := s.buf.ReadBytes('\n')
		if err != nil {
			// Incomplete tail: put it back for the next push.
			s.buf.Reset()
			s.buf.Write(line)
			return nil
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		dec := NewDecoder(bytes.NewReader(line))
		v, err := DecodeValue(dec)
		if err != nil {
			return err
		}
		select {
		case s.out <- v:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

func (s *ndjsonSink) flush() error {
	return nil
}

// Locker lets an embedding host runtime guard IterableFrontEnd.Push:
// Push calls Lock before decoding each value and Unlock right after, so
// the host lock is not held during the blocking channel send (spec.md
// section 5). The zero value
// of IterableFrontEnd uses a no-op Locker; embedding bindings are out of
// scope here, but the hook is specified so a host binding can supply one.
type Locker interface {
	Lock()
	Unlock()
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// IterableOption configures an IterableFrontEnd.
type IterableOption func(*IterableFrontEnd)

// WithLocker installs a host-runtime Locker bracketing the decode step of
// each Push.
func WithLocker(l Locker) IterableOption {
	return func(fe *IterableFrontEnd) { fe.locker = l }
}

// IterableFrontEnd is the in-memory front end: the caller pushes one
// JSON value (as bytes) at a time via Push, instead of Run pulling from
// a stream. Run blocks until the caller calls Close or ctx is canceled.
type IterableFrontEnd struct {
	locker Locker

	ready     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	ctx context.Context
	out chan<- *JSONValue
}

// NewIterableFrontEnd builds an IterableFrontEnd ready to receive Push
// calls once Run has been started (typically in its own goroutine).
func NewIterableFrontEnd(opts ...IterableOption) *IterableFrontEnd {
	fe := &IterableFrontEnd{
		locker: noopLocker{},
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fe)
	}
	return fe
}

// Run implements FrontEnd.
func (fe *IterableFrontEnd) Run(ctx context.Context, out chan<- *JSONValue) error {
	fe.ctx = ctx
	fe.out = out
	close(fe.ready)

	select {
	case <-fe.done:
	case <-ctx.Done():
	}
	close(out)
	return ctx.Err()
}

// Push decodes b as one JSON value and forwards it to the pipeline,
// blocking until the consumer receives it, ctx is canceled, or Close has
// been called. The host-runtime lock (if any) is held only across
// decoding, and surrendered before the potentially-blocking send.
func (fe *IterableFrontEnd) Push(b []byte) error {
	<-fe.ready

	fe.locker.Lock()
	v, err := DecodeValue(NewDecoder(bytes.NewReader(b)))
	fe.locker.Unlock()
	if err != nil {
		return newParseError(0, -1, "malformed JSON value", err)
	}

	select {
	case fe.out <- v:
		return nil
	case <-fe.ctx.Done():
		return fe.ctx.Err()
	case <-fe.done:
		return ErrPipelineClosed
	}
}

// Close signals Run to close the output channel and return. Safe to
// call more than once.
func (fe *IterableFrontEnd) Close() {
	fe.closeOnce.Do(func() { close(fe.done) })
}
