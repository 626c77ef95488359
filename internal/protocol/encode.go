package protocol

import (
	"bytes"
	"io"

	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

// Encode writes msg as one frame: id, kind, body, success marker. The frame is
// assembled first and handed to w in a single Write.
func Encode(w io.Writer, msg Message) error {
	b, err := Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Marshal returns the complete frame bytes for msg.
func Marshal(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	var buf bytes.Buffer
	fw := frame.NewWriter(&buf)
	fw.WriteUint32(msg.ID())
	fw.WriteUint32(uint32(msg.Kind()))
	msg.writeBody(fw)
	fw.WriteSuccessMarker()
	if err := fw.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
