// Package render writes a resolved record in the shapes its consumers read:
// the record itself, a Hardhat user config, foundry.toml and a dotenv file.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/deployconf/internal/resolver"
)

// Format names an output shape.
type Format string

const (
	FormatJSON    Format = "json"
	FormatHardhat Format = "hardhat"
	FormatYAML    Format = "yaml"
	FormatTOML    Format = "toml"
	FormatEnv     Format = "env"
)

// ErrUnknownFormat is returned for format names outside Formats.
var ErrUnknownFormat = errors.New("unknown render format")

var formats = []Format{FormatHardhat, FormatJSON, FormatYAML, FormatTOML, FormatEnv}

// Formats lists the supported formats, default first.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// FormatNames is Formats as plain strings, for flag enums.
func FormatNames() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, f := range formats {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON, FormatHardhat:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatTOML:
		return "application/toml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Options controls rendering.
type Options struct {
	// Reveal writes secrets verbatim. When false the record is redacted first.
	Reveal bool
}

// Render writes rec to w in the requested format.
func Render(w io.Writer, rec resolver.Record, format Format, opts Options) error {
	if !opts.Reveal {
		rec = rec.Redacted()
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, rec)
	case FormatHardhat:
		return writeJSON(w, newHardhatConfig(rec))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(newFoundryConfig(rec)); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	case FormatEnv:
		return writeEnv(w, rec)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeEnv(w io.Writer, rec resolver.Record) error {
	privateKey := ""
	if len(rec.AccountKeys) > 0 {
		privateKey = rec.AccountKeys[0]
	}

	out, err := godotenv.Marshal(map[string]string{
		resolver.EnvRPCURL:         rec.RPCURL,
		resolver.EnvPrivateKey:     privateKey,
		resolver.EnvExplorerAPIKey: rec.ExplorerAPIKey,
	})
	if err != nil {
		return fmt.Errorf("encode env: %w", err)
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}
