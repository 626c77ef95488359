package protocol

import "github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"

// Message is the closed set of wire variants.
type Message interface {
	ID() uint32
	Kind() Kind
	writeBody(w *frame.Writer)
}

// Success acknowledges a request with no payload.
type Success struct {
	MessageID         uint32
	OriginalMessageID uint32
}

// DataResponse answers a request with an opaque payload.
type DataResponse struct {
	MessageID         uint32
	OriginalMessageID uint32
	Data              []byte
}

// ErrorResponse answers a request with a UTF-8 error message.
type ErrorResponse struct {
	MessageID         uint32
	OriginalMessageID uint32
	Data              []byte
}

type Shutdown struct {
	MessageID uint32
}

type Active struct {
	MessageID uint32
}

type GetPluginInfo struct {
	MessageID uint32
}

type GetLicenseText struct {
	MessageID uint32
}

type RegisterConfig struct {
	MessageID        uint32
	ConfigID         uint32
	GlobalConfigData []byte
	PluginConfigData []byte
}

type ReleaseConfig struct {
	MessageID uint32
	ConfigID  uint32
}

type GetConfigDiagnostics struct {
	MessageID uint32
	ConfigID  uint32
}

type GetFileMatchingInfo struct {
	MessageID uint32
	ConfigID  uint32
}

type GetResolvedConfig struct {
	MessageID uint32
	ConfigID  uint32
}

type CheckConfigUpdates struct {
	MessageID        uint32
	PluginConfigData []byte
}

// FormatText asks the worker to format FileText with the config registered
// under ConfigID, optionally overlaid by OverrideConfig.
type FormatText struct {
	MessageID      uint32
	FilePath       []byte
	StartByteIndex uint32
	EndByteIndex   uint32
	ConfigID       uint32
	OverrideConfig []byte
	FileText       []byte
}

// FormatTextResponse carries Content only when Changed is set; an unchanged
// result is encoded as the no-change tag.
type FormatTextResponse struct {
	MessageID         uint32
	OriginalMessageID uint32
	Changed           bool
	Content           []byte
}

type CancelFormat struct {
	MessageID         uint32
	OriginalMessageID uint32
}

type HostFormat struct {
	MessageID      uint32
	FilePath       []byte
	StartByteIndex uint32
	EndByteIndex   uint32
	OverrideConfig []byte
	FileText       []byte
}

const (
	formatResultNoChange uint32 = 0
	formatResultChanged  uint32 = 1
)

func (m *Success) ID() uint32              { return m.MessageID }
func (m *DataResponse) ID() uint32         { return m.MessageID }
func (m *ErrorResponse) ID() uint32        { return m.MessageID }
func (m *Shutdown) ID() uint32             { return m.MessageID }
func (m *Active) ID() uint32               { return m.MessageID }
func (m *GetPluginInfo) ID() uint32        { return m.MessageID }
func (m *GetLicenseText) ID() uint32       { return m.MessageID }
func (m *RegisterConfig) ID() uint32       { return m.MessageID }
func (m *ReleaseConfig) ID() uint32        { return m.MessageID }
func (m *GetConfigDiagnostics) ID() uint32 { return m.MessageID }
func (m *GetFileMatchingInfo) ID() uint32  { return m.MessageID }
func (m *GetResolvedConfig) ID() uint32    { return m.MessageID }
func (m *CheckConfigUpdates) ID() uint32   { return m.MessageID }
func (m *FormatText) ID() uint32           { return m.MessageID }
func (m *FormatTextResponse) ID() uint32   { return m.MessageID }
func (m *CancelFormat) ID() uint32         { return m.MessageID }
func (m *HostFormat) ID() uint32           { return m.MessageID }

func (*Success) Kind() Kind              { return KindSuccess }
func (*DataResponse) Kind() Kind         { return KindDataResponse }
func (*ErrorResponse) Kind() Kind        { return KindErrorResponse }
func (*Shutdown) Kind() Kind             { return KindShutdown }
func (*Active) Kind() Kind               { return KindActive }
func (*GetPluginInfo) Kind() Kind        { return KindGetPluginInfo }
func (*GetLicenseText) Kind() Kind       { return KindGetLicenseText }
func (*RegisterConfig) Kind() Kind       { return KindRegisterConfig }
func (*ReleaseConfig) Kind() Kind        { return KindReleaseConfig }
func (*GetConfigDiagnostics) Kind() Kind { return KindGetConfigDiagnostics }
func (*GetFileMatchingInfo) Kind() Kind  { return KindGetFileMatchingInfo }
func (*GetResolvedConfig) Kind() Kind    { return KindGetResolvedConfig }
func (*CheckConfigUpdates) Kind() Kind   { return KindCheckConfigUpdates }
func (*FormatText) Kind() Kind           { return KindFormatText }
func (*FormatTextResponse) Kind() Kind   { return KindFormatTextResponse }
func (*CancelFormat) Kind() Kind         { return KindCancelFormat }
func (*HostFormat) Kind() Kind           { return KindHostFormat }

func (m *Success) writeBody(w *frame.Writer) {
	w.WriteUint32(m.OriginalMessageID)
}

func (m *DataResponse) writeBody(w *frame.Writer) {
	w.WriteUint32(m.OriginalMessageID)
	w.WriteVariable(m.Data)
}

func (m *ErrorResponse) writeBody(w *frame.Writer) {
	w.WriteUint32(m.OriginalMessageID)
	w.WriteVariable(m.Data)
}

func (*Shutdown) writeBody(*frame.Writer)       {}
func (*Active) writeBody(*frame.Writer)         {}
func (*GetPluginInfo) writeBody(*frame.Writer)  {}
func (*GetLicenseText) writeBody(*frame.Writer) {}

func (m *RegisterConfig) writeBody(w *frame.Writer) {
	w.WriteUint32(m.ConfigID)
	w.WriteVariable(m.GlobalConfigData)
	w.WriteVariable(m.PluginConfigData)
}

func (m *ReleaseConfig) writeBody(w *frame.Writer) {
	w.WriteUint32(m.ConfigID)
}

func (m *GetConfigDiagnostics) writeBody(w *frame.Writer) {
	w.WriteUint32(m.ConfigID)
}

func (m *GetFileMatchingInfo) writeBody(w *frame.Writer) {
	w.WriteUint32(m.ConfigID)
}

func (m *GetResolvedConfig) writeBody(w *frame.Writer) {
	w.WriteUint32(m.ConfigID)
}

func (m *CheckConfigUpdates) writeBody(w *frame.Writer) {
	w.WriteVariable(m.PluginConfigData)
}

func (m *FormatText) writeBody(w *frame.Writer) {
	w.WriteVariable(m.FilePath)
	w.WriteUint32(m.StartByteIndex)
	w.WriteUint32(m.EndByteIndex)
	w.WriteUint32(m.ConfigID)
	w.WriteVariable(m.OverrideConfig)
	w.WriteVariable(m.FileText)
}

func (m *FormatTextResponse) writeBody(w *frame.Writer) {
	w.WriteUint32(m.OriginalMessageID)
	if !m.Changed {
		w.WriteUint32(formatResultNoChange)
		return
	}
	w.WriteUint32(formatResultChanged)
	w.WriteVariable(m.Content)
}

func (m *CancelFormat) writeBody(w *frame.Writer) {
	w.WriteUint32(m.OriginalMessageID)
}

func (m *HostFormat) writeBody(w *frame.Writer) {
	w.WriteVariable(m.FilePath)
	w.WriteUint32(m.StartByteIndex)
	w.WriteUint32(m.EndByteIndex)
	w.WriteVariable(m.OverrideConfig)
	w.WriteVariable(m.FileText)
}
