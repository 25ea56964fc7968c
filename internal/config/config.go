// Package config owns the optional run configuration file.
//
// Ownership boundary:
// - defaults for every tunable
// - TOML and YAML decoding, selected by file extension
// - rejection of values no run could use
//
// Keys that are absent keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/exireq/internal/encoder"
	"github.com/danmuck/exireq/internal/extract"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/input"
	"github.com/danmuck/exireq/internal/protocol/v2gtp"
	"github.com/danmuck/exireq/internal/record"
	"gopkg.in/yaml.v3"
)

type OutputConfig struct {
	Capacity         int
	V2GTP            bool
	V2GTPPayloadType uint16
}

type MetricsConfig struct {
	// Textfile, when set, receives run counters in Prometheus text format.
	Textfile string
}

// Config is the resolved configuration of one run.
type Config struct {
	ClampPolicy extract.ClampPolicy
	Limits      record.Limits
	Input       input.Limits
	Output      OutputConfig
	Metrics     MetricsConfig
}

func Default() Config {
	return Config{
		ClampPolicy: extract.PolicyClamp,
		Limits:      record.DefaultLimits(),
		Input:       input.DefaultLimits(),
		Output: OutputConfig{
			Capacity:         encoder.DefaultOutputCapacity,
			V2GTPPayloadType: v2gtp.PayloadTypeEXI,
		},
	}
}

// EncoderLimits derives the encoder buffer sizing.
func (c Config) EncoderLimits() encoder.Limits {
	return encoder.Limits{OutputCapacity: c.Output.Capacity}
}

type fileConfig struct {
	ClampPolicy string      `toml:"clamp_policy" yaml:"clamp_policy"`
	Limits      fileLimits  `toml:"limits" yaml:"limits"`
	Input       fileInput   `toml:"input" yaml:"input"`
	Output      fileOutput  `toml:"output" yaml:"output"`
	Metrics     fileMetrics `toml:"metrics" yaml:"metrics"`
}

type fileLimits struct {
	SessionIDBytes     int `toml:"session_id_bytes" yaml:"session_id_bytes"`
	RootCertificateIDs int `toml:"root_certificate_ids" yaml:"root_certificate_ids"`
	IssuerNameChars    int `toml:"issuer_name_chars" yaml:"issuer_name_chars"`
	SerialNumberOctets int `toml:"serial_number_octets" yaml:"serial_number_octets"`
	SubCertificates    int `toml:"sub_certificates" yaml:"sub_certificates"`
	CertificateBytes   int `toml:"certificate_bytes" yaml:"certificate_bytes"`
	EMAIDs             int `toml:"emaids" yaml:"emaids"`
	EMAIDChars         int `toml:"emaid_chars" yaml:"emaid_chars"`
}

type fileInput struct {
	InitialSize int `toml:"initial_size" yaml:"initial_size"`
	MaxSize     int `toml:"max_size" yaml:"max_size"`
}

type fileOutput struct {
	Capacity         int  `toml:"capacity" yaml:"capacity"`
	V2GTP            bool `toml:"v2gtp" yaml:"v2gtp"`
	V2GTPPayloadType int  `toml:"v2gtp_payload_type" yaml:"v2gtp_payload_type"`
}

type fileMetrics struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// isDefined reports whether a dotted key path was present in the file.
type isDefined func(key ...string) bool

// Load reads path and applies it over Default. The format follows the
// extension: .toml, or .yaml / .yml.
func Load(path string) (Config, error) {
	var (
		raw     fileConfig
		defined isDefined
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		raw, defined, err = decodeTOML(path)
	case ".yaml", ".yml":
		raw, defined, err = decodeYAML(path)
	default:
		return Config{}, fault.Newf(fault.KindConfig, "", "unsupported config format %q (%s)", ext, path)
	}
	if err != nil {
		return Config{}, err
	}

	cfg, err := apply(Default(), raw, defined)
	if err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeTOML(path string) (fileConfig, isDefined, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fileConfig{}, nil, fault.Wrap(fault.KindConfig, "", fmt.Sprintf("load config %s", path), err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fileConfig{}, nil, fault.Newf(fault.KindConfig, undecoded[0].String(), "unknown key in %s", path)
	}
	return raw, meta.IsDefined, nil
}

func decodeYAML(path string) (fileConfig, isDefined, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, nil, fault.Wrap(fault.KindConfig, "", fmt.Sprintf("load config %s", path), err)
	}

	var raw fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, nil, fault.Wrap(fault.KindConfig, "", fmt.Sprintf("parse config %s", path), err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fileConfig{}, nil, fault.Wrap(fault.KindConfig, "", fmt.Sprintf("parse config %s", path), err)
	}
	return raw, func(key ...string) bool { return lookup(tree, key) }, nil
}

func lookup(tree map[string]any, key []string) bool {
	node := tree
	for i, k := range key {
		v, ok := node[k]
		if !ok {
			return false
		}
		if i == len(key)-1 {
			return true
		}
		if node, ok = v.(map[string]any); !ok {
			return false
		}
	}
	return false
}

func apply(cfg Config, raw fileConfig, defined isDefined) (Config, error) {
	if defined("clamp_policy") {
		policy, err := extract.ParsePolicy(raw.ClampPolicy)
		if err != nil {
			return Config{}, err
		}
		cfg.ClampPolicy = policy
	}

	ints := []struct {
		section, key string
		src          int
		dst          *int
	}{
		{"limits", "session_id_bytes", raw.Limits.SessionIDBytes, &cfg.Limits.SessionIDBytes},
		{"limits", "root_certificate_ids", raw.Limits.RootCertificateIDs, &cfg.Limits.RootCertificateIDs},
		{"limits", "issuer_name_chars", raw.Limits.IssuerNameChars, &cfg.Limits.IssuerNameChars},
		{"limits", "serial_number_octets", raw.Limits.SerialNumberOctets, &cfg.Limits.SerialNumberOctets},
		{"limits", "sub_certificates", raw.Limits.SubCertificates, &cfg.Limits.SubCertificates},
		{"limits", "certificate_bytes", raw.Limits.CertificateBytes, &cfg.Limits.CertificateBytes},
		{"limits", "emaids", raw.Limits.EMAIDs, &cfg.Limits.EMAIDs},
		{"limits", "emaid_chars", raw.Limits.EMAIDChars, &cfg.Limits.EMAIDChars},
		{"input", "initial_size", raw.Input.InitialSize, &cfg.Input.InitialSize},
		{"input", "max_size", raw.Input.MaxSize, &cfg.Input.MaxSize},
		{"output", "capacity", raw.Output.Capacity, &cfg.Output.Capacity},
	}
	for _, v := range ints {
		if defined(v.section, v.key) {
			*v.dst = v.src
		}
	}

	if defined("output", "v2gtp") {
		cfg.Output.V2GTP = raw.Output.V2GTP
	}
	if defined("output", "v2gtp_payload_type") {
		pt := raw.Output.V2GTPPayloadType
		if pt < 0 || pt > math.MaxUint16 {
			return Config{}, fault.Newf(fault.KindConfig, "output.v2gtp_payload_type", "out of range: %d", pt)
		}
		cfg.Output.V2GTPPayloadType = uint16(pt)
	}
	if defined("metrics", "textfile") {
		cfg.Metrics.Textfile = strings.TrimSpace(raw.Metrics.Textfile)
	}
	return cfg, nil
}

// Validate rejects configurations no run could satisfy.
func Validate(cfg Config) error {
	if _, err := extract.ParsePolicy(string(cfg.ClampPolicy)); err != nil {
		return err
	}
	if err := cfg.Limits.Check(); err != nil {
		return err
	}
	if cfg.Input.InitialSize < 1 {
		return fault.Newf(fault.KindConfig, "input.initial_size", "must be positive: %d", cfg.Input.InitialSize)
	}
	if cfg.Input.MaxSize < cfg.Input.InitialSize {
		return fault.Newf(fault.KindConfig, "input.max_size", "%d smaller than initial_size %d", cfg.Input.MaxSize, cfg.Input.InitialSize)
	}
	if cfg.Output.Capacity < 1 {
		return fault.Newf(fault.KindConfig, "output.capacity", "must be positive: %d", cfg.Output.Capacity)
	}
	return nil
}
