// Package config loads the service's own settings (HTTP port, timeouts, rate
// limits, log level, probe timeout) from YAML files, an environment snapshot
// and CLI flags with precedence: CLI flags > YAML config > Environment
// variables > Defaults. The toolkit record itself is built by package resolver.
package config
