package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment is a point-in-time snapshot of environment variables. It is
// taken once at startup and passed to whatever needs it.
type Environment map[string]string

// FromOS snapshots the process environment.
func FromOS() Environment {
	return FromPairs(os.Environ())
}

// FromPairs builds an Environment from KEY=value entries as returned by
// os.Environ. Entries without '=' are ignored.
func FromPairs(pairs []string) Environment {
	env := make(Environment, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// FromMap copies m into a new Environment.
func FromMap(m map[string]string) Environment {
	env := make(Environment, len(m))
	for k, v := range m {
		env[k] = v
	}
	return env
}

// Lookup reports the value of key and whether it is present at all.
func (e Environment) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

// LoadFiles overlays dotenv files onto base and returns the merged snapshot
// together with the files that were actually read. Values already present in
// base win over file values, and earlier files win over later ones. Missing
// files are skipped.
func LoadFiles(base Environment, paths ...string) (Environment, []string, error) {
	merged := FromMap(base)
	var loaded []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("read env file %s: %w", path, err)
		}
		for k, v := range values {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
		loaded = append(loaded, path)
	}
	return merged, loaded, nil
}

func (e Environment) override(key string) (string, bool) {
	value, ok := e[key]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (e Environment) valueOr(key, fallback string) string {
	if value, ok := e.override(key); ok {
		return value
	}
	return fallback
}
