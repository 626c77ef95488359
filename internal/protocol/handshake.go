package protocol

import (
	"fmt"
	"io"

	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

// EstablishSchema answers the host's schema version request that precedes the
// message loop: the host sends 0, the worker replies 0 and SchemaVersion.
func EstablishSchema(r *frame.Reader, w io.Writer) error {
	req, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("protocol: read schema request: %w", err)
	}
	if req != 0 {
		return fmt.Errorf("%w: %d", ErrSchemaRequest, req)
	}
	fw := frame.NewWriter(w)
	fw.WriteUint32(0)
	fw.WriteUint32(SchemaVersion)
	if err := fw.Err(); err != nil {
		return fmt.Errorf("protocol: write schema version: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
