package teamconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported serialization formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// ErrUnsupportedFormat is returned for anything other than yaml/yml/json.
var ErrUnsupportedFormat = errors.New("unsupported format: use .yml, .yaml or .json")

// FormatFromFilename maps a file extension to a format.
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// NormalizeFormat accepts yaml, yml and json (case-insensitive); empty means yaml.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// DecodeMap parses raw bytes into a generic map.
func DecodeMap(data []byte, format string) (map[string]any, error) {
	f, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if out == nil {
		return nil, errors.New("configuration is empty")
	}
	return Normalize(out).(map[string]any), nil
}

// Normalize converts nested map[any]any and json.Number values into
// JSON-friendly types.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// DetectType returns TypeHierarchical when a coordinator section exists.
func DetectType(data map[string]any) string {
	if _, ok := data["coordinator"]; ok {
		return TypeHierarchical
	}
	return TypeSingle
}

// FromMap decodes a generic map into a HierarchicalConfig.
func FromMap(data map[string]any) (*HierarchicalConfig, error) {
	var cfg HierarchicalConfig
	if err := remarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode hierarchical config: %w", err)
	}
	return &cfg, nil
}

// AgentFromMap decodes a generic map into an AgentConfig.
func AgentFromMap(data map[string]any) (*AgentConfig, error) {
	var cfg AgentConfig
	if err := remarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode agent config: %w", err)
	}
	return &cfg, nil
}

// ToMap encodes any config value back into a generic map.
func ToMap(v any) (map[string]any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return Normalize(out).(map[string]any), nil
}

// Clone deep-copies a generic config map.
func Clone(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return cloneValue(data).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func remarshal(in any, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// Parse decodes a hierarchical config from raw bytes and validates it.
func Parse(data []byte, format string) (*HierarchicalConfig, map[string]any, error) {
	raw, err := DecodeMap(data, format)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := FromMap(raw)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, raw, nil
}

// LoadFile reads and validates a hierarchical config file.
func LoadFile(path string) (*HierarchicalConfig, map[string]any, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, format)
}

// LoadAgentFile reads a single agent config file.
func LoadAgentFile(path string) (*AgentConfig, map[string]any, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read agent config %s: %w", path, err)
	}
	raw, err := DecodeMap(data, format)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := AgentFromMap(raw)
	if err != nil {
		return nil, nil, err
	}
	return cfg, raw, nil
}

// ResolveWorkerFile finds a worker config file either as given or relative
// to one of the base directories.
func ResolveWorkerFile(baseDirs []string, file string) (string, bool) {
	if file == "" {
		return "", false
	}
	if fileExists(file) {
		return file, true
	}
	if filepath.IsAbs(file) {
		return "", false
	}
	for _, dir := range baseDirs {
		candidate := filepath.Join(dir, file)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
