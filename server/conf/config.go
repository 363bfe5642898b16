// Package conf loads engine tunables from an .ini file.
package conf

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/dbkit/slotdb/logger"
)

// CommandLineArgs carries the flags the engine's entry points accept.
type CommandLineArgs struct {
	ConfigPath string
}

// Cfg is the engine's resolved configuration. Fields default to the
// values NewCfg sets and are overridden section-by-section by Load.
type Cfg struct {
	Raw *ini.File

	// storage
	DataDir              string `default:"data" ini:"data_dir"`
	PageCacheBytes       int64  `default:"134217728" ini:"page_cache_bytes"`
	VerifyChecksumOnLoad bool   `default:"true" ini:"verify_checksum_on_load"`

	// logs
	LogError string `default:"log/error.log" ini:"log_error"`
	LogInfos string `default:"log/engine.log" ini:"log_infos"`
	LogLevel string `default:"info" ini:"log_level"`
}

// NewCfg returns a Cfg populated with the engine's defaults.
func NewCfg() *Cfg {
	return &Cfg{
		Raw:                  ini.Empty(),
		DataDir:              "data",
		PageCacheBytes:       134217728, // 128MB
		VerifyChecksumOnLoad: true,
		LogError:             "log/error.log",
		LogInfos:             "log/engine.log",
		LogLevel:             "info",
	}
}

// Load reads the ini file named by args.ConfigPath (or "conf/engine.ini"
// if unset), falling back to defaults when the file is missing.
func (cfg *Cfg) Load(args *CommandLineArgs) (*Cfg, error) {
	configFile := "conf/engine.ini"
	if args != nil && args.ConfigPath != "" {
		configFile = args.ConfigPath
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logger.Log.Debugf("config file %s not found, using defaults", configFile)
		cfg.Raw = ini.Empty()
		return cfg, nil
	}

	parsed, err := ini.Load(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "conf: load %s", configFile)
	}
	cfg.Raw = parsed

	cfg.parseStorageCfg(cfg.Raw.Section("storage"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg, nil
}

func (cfg *Cfg) parseStorageCfg(section *ini.Section) {
	if section == nil {
		return
	}
	if v, err := valueAsString(section, "data_dir", cfg.DataDir); err == nil {
		cfg.DataDir = v
	}
	cfg.PageCacheBytes = section.Key("page_cache_bytes").MustInt64(cfg.PageCacheBytes)
	cfg.VerifyChecksumOnLoad = section.Key("verify_checksum_on_load").MustBool(cfg.VerifyChecksumOnLoad)
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) {
	if section == nil {
		return
	}
	if v, err := valueAsString(section, "log_error", cfg.LogError); err == nil {
		cfg.LogError = v
	}
	if v, err := valueAsString(section, "log_infos", cfg.LogInfos); err == nil {
		cfg.LogInfos = v
	}
	if v, err := valueAsString(section, "log_level", cfg.LogLevel); err == nil {
		level := strings.ToLower(v)
		switch level {
		case "debug", "info", "warn", "error", "fatal", "panic":
			cfg.LogLevel = level
		default:
			logger.Log.Debugf("invalid log level %q, keeping %q", v, cfg.LogLevel)
		}
	}
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) (string, error) {
	if section == nil {
		return defaultValue, nil
	}
	value := section.Key(keyName).MustString(defaultValue)
	if value == "" {
		value = defaultValue
	}
	return value, nil
}

// GetString reads "section.key" from the raw ini file, "" if absent.
func (cfg *Cfg) GetString(key string) string {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) < 2 {
		return ""
	}
	section := cfg.Raw.Section(parts[0])
	value, _ := valueAsString(section, parts[1], "")
	return value
}

// GetInt reads "section.key" from the raw ini file, 0 if absent.
func (cfg *Cfg) GetInt(key string) int {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) < 2 {
		return 0
	}
	section := cfg.Raw.Section(parts[0])
	if section == nil {
		return 0
	}
	return section.Key(parts[1]).MustInt(0)
}
