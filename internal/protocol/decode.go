package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

// Decode reads one frame. It returns io.EOF when the stream ends cleanly at a
// frame boundary. Marker mismatches and unknown tags wrap ErrProtocolDesync.
func Decode(r *frame.Reader) (Message, error) {
	id, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	body := bodyReader{r: r}
	rawKind := body.u32()
	if body.err != nil {
		return nil, body.err
	}

	var msg Message
	switch kind := Kind(rawKind); kind {
	case KindSuccess:
		msg = &Success{MessageID: id, OriginalMessageID: body.u32()}
	case KindDataResponse:
		msg = &DataResponse{MessageID: id, OriginalMessageID: body.u32(), Data: body.bytes()}
	case KindErrorResponse:
		msg = &ErrorResponse{MessageID: id, OriginalMessageID: body.u32(), Data: body.bytes()}
	case KindShutdown:
		msg = &Shutdown{MessageID: id}
	case KindActive:
		msg = &Active{MessageID: id}
	case KindGetPluginInfo:
		msg = &GetPluginInfo{MessageID: id}
	case KindGetLicenseText:
		msg = &GetLicenseText{MessageID: id}
	case KindRegisterConfig:
		msg = &RegisterConfig{
			MessageID:        id,
			ConfigID:         body.u32(),
			GlobalConfigData: body.bytes(),
			PluginConfigData: body.bytes(),
		}
	case KindReleaseConfig:
		msg = &ReleaseConfig{MessageID: id, ConfigID: body.u32()}
	case KindGetConfigDiagnostics:
		msg = &GetConfigDiagnostics{MessageID: id, ConfigID: body.u32()}
	case KindGetFileMatchingInfo:
		msg = &GetFileMatchingInfo{MessageID: id, ConfigID: body.u32()}
	case KindGetResolvedConfig:
		msg = &GetResolvedConfig{MessageID: id, ConfigID: body.u32()}
	case KindCheckConfigUpdates:
		msg = &CheckConfigUpdates{MessageID: id, PluginConfigData: body.bytes()}
	case KindFormatText:
		msg = &FormatText{
			MessageID:      id,
			FilePath:       body.bytes(),
			StartByteIndex: body.u32(),
			EndByteIndex:   body.u32(),
			ConfigID:       body.u32(),
			OverrideConfig: body.bytes(),
			FileText:       body.bytes(),
		}
	case KindFormatTextResponse:
		resp := &FormatTextResponse{MessageID: id, OriginalMessageID: body.u32()}
		switch tag := body.u32(); {
		case body.err != nil:
		case tag == formatResultNoChange:
		case tag == formatResultChanged:
			resp.Changed = true
			resp.Content = body.bytes()
		default:
			return nil, fmt.Errorf("%w: %w %d", ErrProtocolDesync, ErrUnknownFormatResult, tag)
		}
		msg = resp
	case KindCancelFormat:
		msg = &CancelFormat{MessageID: id, OriginalMessageID: body.u32()}
	case KindHostFormat:
		msg = &HostFormat{
			MessageID:      id,
			FilePath:       body.bytes(),
			StartByteIndex: body.u32(),
			EndByteIndex:   body.u32(),
			OverrideConfig: body.bytes(),
			FileText:       body.bytes(),
		}
	default:
		return nil, fmt.Errorf("%w: %w %d (message_id=%d)", ErrProtocolDesync, ErrUnknownKind, rawKind, id)
	}
	if body.err != nil {
		return nil, body.err
	}

	if err := r.ReadSuccessMarker(); err != nil {
		if errors.Is(err, frame.ErrSuccessMarkerMismatch) {
			return nil, fmt.Errorf("%w: %w (message_id=%d kind=%s)", ErrProtocolDesync, err, id, msg.Kind())
		}
		return nil, err
	}
	return msg, nil
}

// bodyReader keeps the first error so field lists read in wire order.
type bodyReader struct {
	r   *frame.Reader
	err error
}

func (b *bodyReader) u32() uint32 {
	if b.err != nil {
		return 0
	}
	v, err := b.r.ReadUint32()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = frame.ErrTruncated
		}
		b.err = err
	}
	return v
}

func (b *bodyReader) bytes() []byte {
	if b.err != nil {
		return nil
	}
	v, err := b.r.ReadVariable()
	if err != nil {
		b.err = err
	}
	return v
}
