package worker

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	PluginName      = "dprint-plugin-csharpier"
	ConfigKey       = "csharpier"
	HelpURL         = "https://github.com/Phault/dprint-plugin-csharpier"
	UpdateURL       = "https://plugins.dprint.dev/Phault/dprint-plugin-csharpier/latest.json"
	hostFormatError = "cannot host-format with a plugin"
	cancelledError  = "operation cancelled"
)

//go:embed LICENSE
var licenseText []byte

// PluginInfo is the GetPluginInfo payload.
type PluginInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ConfigKey       string `json:"configKey"`
	HelpURL         string `json:"helpUrl"`
	ConfigSchemaURL string `json:"configSchemaUrl"`
	UpdateURL       string `json:"updateUrl"`
}

// FileMatchingInfo is the GetFileMatchingInfo payload.
type FileMatchingInfo struct {
	FileExtensions []string `json:"fileExtensions"`
	FileNames      []string `json:"fileNames"`
}

type configUpdates struct {
	Changes []json.RawMessage `json:"changes"`
}

// payloads are the request-independent responses, encoded once at startup.
type payloads struct {
	pluginInfo   []byte
	license      []byte
	fileMatching []byte
	updates      []byte
}

func newPayloads(version string) (payloads, error) {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return payloads{}, fmt.Errorf("worker: invalid plugin version %q: %w", version, err)
	}
	info, err := json.Marshal(PluginInfo{
		Name:      PluginName,
		Version:   v.String(),
		ConfigKey: ConfigKey,
		HelpURL:   HelpURL,
		UpdateURL: UpdateURL,
	})
	if err != nil {
		return payloads{}, err
	}
	matching, err := json.Marshal(FileMatchingInfo{
		FileExtensions: []string{"cs", "csx"},
		FileNames:      []string{},
	})
	if err != nil {
		return payloads{}, err
	}
	updates, err := json.Marshal(configUpdates{Changes: []json.RawMessage{}})
	if err != nil {
		return payloads{}, err
	}
	return payloads{
		pluginInfo:   info,
		license:      licenseText,
		fileMatching: matching,
		updates:      updates,
	}, nil
}
