/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"compress/flate"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

// LimitsConfig bounds the work a single conversion may do.
type LimitsConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// RenderConfig drives the paginated (PDF) export raster.
type RenderConfig struct {
	PageWidthPt  float64 `yaml:"page_width_pt"`
	PageHeightPt float64 `yaml:"page_height_pt"`
	MarginPt     float64 `yaml:"margin_pt"`
	DPI          int     `yaml:"dpi"`
	FontPath     string  `yaml:"font_path"`      // optional TTF/OTF; empty uses the built-in bitmap face
	MonoFontPath string  `yaml:"mono_font_path"` // optional TTF/OTF for code blocks
	FontSize     float64 `yaml:"font_size"`
}

type ExportConfig struct {
	CompressionLevel int    `yaml:"compression_level"`
	Language         string `yaml:"language"`
	DefaultAuthor    string `yaml:"default_author"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty resolves next to the config file
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Limits        LimitsConfig  `yaml:"limits"`
	Render        RenderConfig  `yaml:"render"`
	Export        ExportConfig  `yaml:"export"`
	Journal       JournalConfig `yaml:"journal"`
	Logging       LoggingConfig `yaml:"logging"`
}

// DefaultMaxBytes is the upstream input ceiling (50 MB).
const DefaultMaxBytes int64 = 50 * 1024 * 1024

// Defaults returns the application defaults. Page geometry is US Letter.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Limits:        LimitsConfig{MaxBytes: DefaultMaxBytes},
		Render:        RenderConfig{PageWidthPt: 612, PageHeightPt: 792, MarginPt: 54, DPI: 96, FontSize: 12},
		Export:        ExportConfig{CompressionLevel: flate.DefaultCompression, Language: "en"},
		Journal:       JournalConfig{Enabled: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile  = "CRW_CONFIG"
	EnvMaxBytes    = "CRW_MAX_BYTES"
	EnvFontPath    = "CRW_FONT_PATH"
	EnvMonoFont    = "CRW_MONO_FONT_PATH"
	EnvDPI         = "CRW_DPI"
	EnvLanguage    = "CRW_LANGUAGE"
	EnvJournal     = "CRW_JOURNAL"
	EnvJournalPath = "CRW_JOURNAL_PATH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CRW_LOG_LEVEL"
	EnvLogFormat = "CRW_LOG_FORMAT"
	EnvLogSource = "CRW_LOG_SOURCE"
	EnvLogFile   = "CRW_LOG_FILE"
)

// Dir returns the per-user config directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Crowdly")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Crowdly")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "crowdly")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "crowdly")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the config file path. CRW_CONFIG wins over the per-user location.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// A missing file is not an error; a malformed one is.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// JournalPath resolves where the conversion journal lives.
func (c AppConfig) JournalPath() (string, error) {
	if p := strings.TrimSpace(c.Journal.Path); p != "" {
		return p, nil
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "journal.sqlite"), nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Limits.MaxBytes > 0 {
		dst.Limits.MaxBytes = src.Limits.MaxBytes
	}
	if src.Render.PageWidthPt > 0 {
		dst.Render.PageWidthPt = src.Render.PageWidthPt
	}
	if src.Render.PageHeightPt > 0 {
		dst.Render.PageHeightPt = src.Render.PageHeightPt
	}
	if src.Render.MarginPt > 0 {
		dst.Render.MarginPt = src.Render.MarginPt
	}
	if src.Render.DPI > 0 {
		dst.Render.DPI = src.Render.DPI
	}
	if src.Render.FontSize > 0 {
		dst.Render.FontSize = src.Render.FontSize
	}
	if strings.TrimSpace(src.Render.FontPath) != "" {
		dst.Render.FontPath = strings.TrimSpace(src.Render.FontPath)
	}
	if strings.TrimSpace(src.Render.MonoFontPath) != "" {
		dst.Render.MonoFontPath = strings.TrimSpace(src.Render.MonoFontPath)
	}
	// zero is a valid level (store); only accept values inside the flate range
	if src.Export.CompressionLevel >= flate.HuffmanOnly && src.Export.CompressionLevel <= flate.BestCompression && src.Export.CompressionLevel != 0 {
		dst.Export.CompressionLevel = src.Export.CompressionLevel
	}
	if strings.TrimSpace(src.Export.Language) != "" {
		dst.Export.Language = strings.TrimSpace(src.Export.Language)
	}
	if strings.TrimSpace(src.Export.DefaultAuthor) != "" {
		dst.Export.DefaultAuthor = strings.TrimSpace(src.Export.DefaultAuthor)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Journal.Enabled = src.Journal.Enabled
	if strings.TrimSpace(src.Journal.Path) != "" {
		dst.Journal.Path = strings.TrimSpace(src.Journal.Path)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Limits.MaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontPath)); v != "" {
		cfg.Render.FontPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMonoFont)); v != "" {
		cfg.Render.MonoFontPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDPI)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Render.DPI = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		cfg.Export.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournal)); v != "" {
		cfg.Journal.Enabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalPath)); v != "" {
		cfg.Journal.Path = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"limits.max_bytes":      EnvMaxBytes,
		"render.font_path":      EnvFontPath,
		"render.mono_font_path": EnvMonoFont,
		"render.dpi":            EnvDPI,
		"export.language":       EnvLanguage,
		"journal.enabled":       EnvJournal,
		"journal.path":          EnvJournalPath,
		"logging.level":         EnvLogLevel,
		"logging.format":        EnvLogFormat,
		"logging.source":        EnvLogSource,
		"logging.file":          EnvLogFile,
	}[key]
	if env == "" || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
