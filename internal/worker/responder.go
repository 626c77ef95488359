package worker

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol"
)

// responder serializes outgoing frames. Each frame is encoded, written and
// flushed under one lock so concurrent format results never interleave.
type responder struct {
	mu  sync.Mutex
	w   io.Writer
	ids atomic.Uint32
	err error
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w}
}

// nextID is safe for concurrent use; ids start at 1.
func (r *responder) nextID() uint32 {
	return r.ids.Add(1)
}

func (r *responder) send(build func(id uint32) protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := protocol.Encode(r.w, build(r.nextID())); err != nil {
		r.err = err
		return err
	}
	if f, ok := r.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			r.err = err
			return err
		}
	}
	return nil
}

func (r *responder) success(original uint32) error {
	return r.send(func(id uint32) protocol.Message {
		return &protocol.Success{MessageID: id, OriginalMessageID: original}
	})
}

func (r *responder) data(original uint32, data []byte) error {
	return r.send(func(id uint32) protocol.Message {
		return &protocol.DataResponse{MessageID: id, OriginalMessageID: original, Data: data}
	})
}

func (r *responder) fail(original uint32, message string) error {
	return r.send(func(id uint32) protocol.Message {
		return &protocol.ErrorResponse{MessageID: id, OriginalMessageID: original, Data: []byte(message)}
	})
}

// formatResult sends the no-change tag when content is nil.
func (r *responder) formatResult(original uint32, content []byte) error {
	return r.send(func(id uint32) protocol.Message {
		return &protocol.FormatTextResponse{
			MessageID:         id,
			OriginalMessageID: original,
			Changed:           content != nil,
			Content:           content,
		}
	})
}

func (r *responder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
