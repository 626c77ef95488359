package protocol

import "errors"

var (
	// ErrProtocolDesync marks a stream that can no longer be trusted.
	ErrProtocolDesync = errors.New("protocol: stream desynchronized")

	ErrUnknownKind         = errors.New("protocol: unknown message kind")
	ErrUnknownFormatResult = errors.New("protocol: unknown format result tag")
	ErrSchemaRequest       = errors.New("protocol: unexpected schema version request")
	ErrNilMessage          = errors.New("protocol: nil message")
)
