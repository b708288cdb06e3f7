package jsondoc

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var ErrParse = errors.New("malformed json document")

// MaxDepth bounds array and object nesting.
const MaxDepth = 10000

// ParseError reports where in the fed byte stream the document stopped
// being valid json.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json parse error at offset %d: %s", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Assembler builds a single Value from json delivered as a sequence of
// chunks. Chunk boundaries need not line up with token boundaries.
//
// Feed hands each chunk to a decoder goroutine and waits until the decoder
// asks for more input, so a true result means everything fed so far was
// scanned without error. An Assembler is not safe for concurrent use.
type Assembler struct {
	running bool
	failed  bool

	chunks chan []byte
	acks   chan struct{}
	done   chan struct{}
	group  *errgroup.Group

	doc *Value
	err error
}

// Begin discards any previous parse and prepares for a new document.
func (a *Assembler) Begin() error {
	a.Discard()

	a.chunks = make(chan []byte)
	a.acks = make(chan struct{})
	a.done = make(chan struct{})
	a.group = &errgroup.Group{}
	a.doc = nil
	a.err = nil
	a.failed = false
	a.running = true

	cr := &chunkReader{chunks: a.chunks, acks: a.acks}

	a.group.Go(func() error {
		defer close(a.done)

		dec := json.NewDecoder(cr)
		dec.UseNumber()

		doc, err := decodeDocument(dec)
		if err != nil {
			a.err = &ParseError{Offset: dec.InputOffset(), Err: err}
			return a.err
		}

		a.doc = doc
		return nil
	})

	return nil
}

// Feed passes the next chunk to the parser. It returns false if the input
// so far can no longer be the prefix of a single json value, or if Begin was
// not called. The chunk is not retained after Feed returns.
func (a *Assembler) Feed(chunk []byte) bool {
	if !a.running || a.failed {
		return false
	}

	if len(chunk) == 0 {
		return true
	}

	select {
	case a.chunks <- chunk:
	case <-a.done:
		a.failed = true
		return false
	}

	select {
	case <-a.acks:
		return true
	case <-a.done:
		a.failed = true
		return false
	}
}

// Err returns the parse error that made Feed fail, if any.
func (a *Assembler) Err() error {
	if !a.failed {
		return nil
	}

	return a.err
}

// End signals the end of input and returns the parsed document.
func (a *Assembler) End() (*Value, error) {
	if !a.running {
		return nil, errors.Wrap(ErrParse, "parse not started")
	}

	close(a.chunks)
	a.running = false

	err := a.group.Wait()

	doc := a.doc
	a.doc = nil

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Discard stops a parse in progress without producing a document.
func (a *Assembler) Discard() {
	if !a.running {
		return
	}

	close(a.chunks)
	a.running = false
	a.group.Wait()
	a.doc = nil
}

// Parse decodes a complete document held in memory.
func Parse(data []byte) (*Value, error) {
	var a Assembler

	err := a.Begin()
	if err != nil {
		return nil, err
	}

	a.Feed(data)

	return a.End()
}

// ParseReader feeds r to an Assembler in chunks of size bytes.
func ParseReader(r io.Reader, size int) (*Value, error) {
	if size <= 0 {
		size = 32 * 1024
	}

	var a Assembler

	err := a.Begin()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)

	for {
		n, rerr := r.Read(buf)
		if n > 0 && !a.Feed(buf[:n]) {
			a.Discard()
			return nil, a.err
		}

		if rerr == io.EOF {
			break
		}

		if rerr != nil {
			a.Discard()
			return nil, errors.Wrapf(rerr, "reading json document")
		}
	}

	return a.End()
}

// chunkReader turns the chunks channel into an io.Reader. Before asking for
// a new chunk it acknowledges the previous one, which tells Feed that the
// decoder consumed it.
type chunkReader struct {
	chunks <-chan []byte
	acks   chan<- struct{}

	cur     []byte
	pending bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.cur) == 0 {
		if r.pending {
			r.acks <- struct{}{}
			r.pending = false
		}

		chunk, ok := <-r.chunks
		if !ok {
			return 0, io.EOF
		}

		r.cur = chunk
		r.pending = true
	}

	n := copy(p, r.cur)
	r.cur = r.cur[n:]

	return n, nil
}

func decodeDocument(dec *json.Decoder) (*Value, error) {
	doc, err := decodeValue(dec, 0)
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty document")
		}
		return nil, err
	}

	tok, err := dec.Token()
	switch {
	case err == io.EOF:
		return doc, nil
	case err != nil:
		return nil, err
	default:
		return nil, errors.Errorf("unexpected %v after document", tok)
	}
}

func decodeValue(dec *json.Decoder, depth int) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, errors.Errorf("exceeded max depth of %d", MaxDepth)
		}

		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		}
		return nil, errors.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return &Value{kind: String, s: t}, nil
	case json.Number:
		return &Value{kind: Number, s: string(t)}, nil
	case bool:
		return &Value{kind: Bool, b: t}, nil
	case nil:
		return &Value{kind: Null}, nil
	default:
		return nil, errors.Errorf("unexpected token %T", tok)
	}
}

func decodeObject(dec *json.Decoder, depth int) (*Value, error) {
	v := &Value{kind: Object}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eof(err)
		}

		key, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("object key is %T", tok)
		}

		mv, err := decodeValue(dec, depth)
		if err != nil {
			return nil, eof(err)
		}

		v.members = append(v.members, Member{Key: key, Value: mv})
	}

	_, err := dec.Token()
	if err != nil {
		return nil, eof(err)
	}

	return v, nil
}

func decodeArray(dec *json.Decoder, depth int) (*Value, error) {
	v := &Value{kind: Array}

	for dec.More() {
		ev, err := decodeValue(dec, depth)
		if err != nil {
			return nil, eof(err)
		}

		v.elems = append(v.elems, ev)
	}

	_, err := dec.Token()
	if err != nil {
		return nil, eof(err)
	}

	return v, nil
}

// eof turns a clean EOF inside a container into io.ErrUnexpectedEOF.
func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}

	return err
}
