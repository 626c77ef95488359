package protocol

import "fmt"

// Kind tags every frame after its message id.
type Kind uint32

const (
	KindSuccess Kind = iota
	KindDataResponse
	KindErrorResponse
	KindShutdown
	KindActive
	KindGetPluginInfo
	KindGetLicenseText
	KindRegisterConfig
	KindReleaseConfig
	KindGetConfigDiagnostics
	KindGetFileMatchingInfo
	KindGetResolvedConfig
	KindCheckConfigUpdates
	KindFormatText
	KindFormatTextResponse
	KindCancelFormat
	KindHostFormat
)

var kindNames = [...]string{
	KindSuccess:              "success",
	KindDataResponse:         "data_response",
	KindErrorResponse:        "error_response",
	KindShutdown:             "shutdown",
	KindActive:               "active",
	KindGetPluginInfo:        "get_plugin_info",
	KindGetLicenseText:       "get_license_text",
	KindRegisterConfig:       "register_config",
	KindReleaseConfig:        "release_config",
	KindGetConfigDiagnostics: "get_config_diagnostics",
	KindGetFileMatchingInfo:  "get_file_matching_info",
	KindGetResolvedConfig:    "get_resolved_config",
	KindCheckConfigUpdates:   "check_config_updates",
	KindFormatText:           "format_text",
	KindFormatTextResponse:   "format_text_response",
	KindCancelFormat:         "cancel_format",
	KindHostFormat:           "host_format",
}

func (k Kind) Valid() bool {
	return uint64(k) < uint64(len(kindNames))
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// SchemaVersion is the process-plugin schema this worker speaks.
const SchemaVersion uint32 = 5
