package fsbridge

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// TextOptions configures the text layer over a byte write session.
type TextOptions struct {
	// Encoding is an IANA charset name (e.g. "ISO-8859-1", "UTF-16").
	// Empty writes UTF-8 through unchanged.
	Encoding string

	// ReplaceUnsupported substitutes unencodable runes instead of failing
	// the write.
	ReplaceUnsupported bool

	// Newline, when non-empty, replaces every '\n' on write (e.g.
	// "\r\n"). Empty leaves newlines untranslated.
	Newline string
}

// TextFile layers text encoding and newline translation over a byte
// [WriteSession]. The commit/discard decision belongs solely to the
// underlying session: TextFile only flushes encoder state before
// delegating. It implements [WriteSession] itself.
type TextFile struct {
	session WriteSession
	w       io.Writer
	tw      *transform.Writer // nil when no encoding transform is active
}

// NewTextFile wraps session with the configured encoding and newline
// translation.
func NewTextFile(session WriteSession, opts TextOptions) (*TextFile, error) {
	t := &TextFile{session: session}
	var w io.Writer = session
	if opts.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(opts.Encoding)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unknown text encoding %q", opts.Encoding)
		}
		e := enc.NewEncoder()
		if opts.ReplaceUnsupported {
			e = encoding.ReplaceUnsupported(e)
		}
		t.tw = transform.NewWriter(w, e)
		w = t.tw
	}
	if opts.Newline != "" && opts.Newline != "\n" {
		w = &newlineWriter{w: w, nl: []byte(opts.Newline)}
	}
	t.w = w
	return t, nil
}

// NewAtomicTextFile opens an atomic write session for target on backend and
// layers the text options over it in one step.
func NewAtomicTextFile(ctx context.Context, backend Backend, target string, aopts AtomicOptions, topts TextOptions) (*TextFile, error) {
	session, err := NewAtomicFile(ctx, backend, target, aopts)
	if err != nil {
		return nil, err
	}
	t, err := NewTextFile(session, topts)
	if err != nil {
		_ = session.Discard(ctx)
		return nil, err
	}
	return t, nil
}

// Write encodes p and writes it to the underlying session.
func (t *TextFile) Write(p []byte) (int, error) { return t.w.Write(p) }

// WriteString is a convenience for Write on string content.
func (t *TextFile) WriteString(s string) (int, error) { return t.w.Write([]byte(s)) }

// Close flushes any pending encoder state and closes the underlying
// session normally. A flush failure discards the session instead, so a
// partially encoded tail never commits.
func (t *TextFile) Close(ctx context.Context) error {
	if t.tw != nil {
		if err := t.tw.Close(); err != nil {
			_ = t.session.Discard(ctx)
			return err
		}
		t.tw = nil
	}
	return t.session.Close(ctx)
}

// Discard abandons the underlying session without flushing.
func (t *TextFile) Discard(ctx context.Context) error {
	t.tw = nil
	return t.session.Discard(ctx)
}

// newlineWriter rewrites '\n' to a configured sequence before handing bytes
// to the next writer. It reports the input length on success, as io.Writer
// requires.
type newlineWriter struct {
	w  io.Writer
	nl []byte
}

func (nw *newlineWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			n, err := nw.w.Write(p)
			written += n
			return written, err
		}
		if i > 0 {
			n, err := nw.w.Write(p[:i])
			written += n
			if err != nil {
				return written, err
			}
		}
		if _, err := nw.w.Write(nw.nl); err != nil {
			return written, err
		}
		written++ // the '\n' consumed from the input
		p = p[i+1:]
	}
	return written, nil
}
