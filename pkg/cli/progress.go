package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// ProgressWriter renders the sideband progress stream of a fetch or push.
//
// Remotes redraw a status line with carriage returns ("Counting objects:
// 50% (3/6)\r"). ProgressWriter keeps those redraws on one terminal line and
// prints each completed line with a prefix, the way git does.
type ProgressWriter struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
	buf    bytes.Buffer
	live   bool
}

// NewProgressWriter creates a writer that renders to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressWriter(w io.Writer, prefix string) *ProgressWriter {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressWriter{out: w, prefix: prefix}
}

// Write consumes sideband bytes. It never fails on partial lines.
func (p *ProgressWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf.Write(b)
	for {
		data := p.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		line := string(data[:i])
		sep := data[i]
		p.buf.Next(i + 1)

		if line == "" && sep == '\n' && p.live {
			fmt.Fprintln(p.out)
			p.live = false
			continue
		}
		if line == "" {
			continue
		}

		if sep == '\r' {
			fmt.Fprintf(p.out, "\r%s%s", p.prefix, line)
			p.live = true
			continue
		}
		if p.live {
			fmt.Fprint(p.out, "\r")
		}
		fmt.Fprintf(p.out, "%s%s\n", p.prefix, line)
		p.live = false
	}
	return len(b), nil
}

// Finish flushes a pending partial line and ends any live status line.
func (p *ProgressWriter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rest := p.buf.String(); rest != "" {
		if p.live {
			fmt.Fprint(p.out, "\r")
		}
		fmt.Fprintf(p.out, "%s%s\n", p.prefix, rest)
		p.buf.Reset()
		p.live = false
	}
	if p.live {
		fmt.Fprintln(p.out)
		p.live = false
	}
}
