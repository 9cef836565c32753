package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Settings is the client settings file as far as the log is concerned. Zero
// values mean "not configured".
type Settings struct {
	LoggingLevel      string `json:"LoggingLevel" yaml:"loggingLevel"`
	LogFileMaxSize    int64  `json:"LogFileMaxSize" yaml:"logFileMaxSize"`
	LogFileTruncateTo int64  `json:"LogFileTruncateTo" yaml:"logFileTruncateTo"`
	LogFile           string `json:"LogFile" yaml:"logFile"`
	Fallback          string `json:"Fallback" yaml:"fallback"`
	StationName       string `json:"StationName" yaml:"stationName"`
	LicenseType       string `json:"LicenseType" yaml:"licenseType"`
	ServerURL         string `json:"ServerUrl" yaml:"serverUrl"`
}

// LoadSettings reads path as YAML when its extension is .yaml or .yml and as
// JSON with comments otherwise.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return ParseSettings(data, filepath.Ext(path))
}

// ParseSettings decodes data in the format named by ext.
func ParseSettings(data []byte, ext string) (Settings, error) {
	var s Settings
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
			return Settings{}, fmt.Errorf("parse json: %w", err)
		}
	}
	return s, nil
}

// apply copies configured values into c for flags that were not set.
func (s Settings) apply(c *AppConfig, fs *pflag.FlagSet) {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !isFlagSet(fs, flag) {
			*dst = v
		}
	}
	setString("level", &c.Level, s.LoggingLevel)
	setString("file", &c.LogPath, s.LogFile)
	setString("fallback", &c.Fallback, s.Fallback)
	setString("station", &c.StationName, s.StationName)
	setString("license", &c.LicenseType, s.LicenseType)
	setString("server-url", &c.ServerURL, s.ServerURL)
	if s.LogFileMaxSize > 0 && !isFlagSet(fs, "max-size") {
		c.MaxSize = s.LogFileMaxSize
	}
	if s.LogFileTruncateTo > 0 && !isFlagSet(fs, "min-size") {
		c.MinSize = s.LogFileTruncateTo
	}
}
