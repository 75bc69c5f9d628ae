// Package chaincheck diagnoses a resolved record: offline inspection of the
// values the external toolkit will receive, and a live probe of the RPC
// endpoint that compares the chain ID it reports against the record's.
package chaincheck

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eugenenazirov/deployconf/internal/resolver"
)

// Severity ranks a Finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding describes one problem or notable fact about a record.
type Finding struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

var errEmptyKey = errors.New("empty private key")

// Inspect checks rec without touching the network. env is the snapshot rec
// was resolved from and is only used to report unconsumed variables.
func Inspect(rec resolver.Record, env resolver.Environment) []Finding {
	var findings []Finding

	if err := validateEndpoint(rec.RPCURL); err != nil {
		findings = append(findings, Finding{
			Field:    "rpcUrl",
			Severity: SeverityError,
			Message:  err.Error(),
		})
	}

	if len(rec.AccountKeys) == 0 {
		findings = append(findings, Finding{
			Field:    "accountKeys",
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s not set; deployments will have no signer", resolver.EnvPrivateKey),
		})
	}
	for i, key := range rec.AccountKeys {
		if _, err := AccountAddress(key); err != nil {
			findings = append(findings, Finding{
				Field:    fmt.Sprintf("accountKeys[%d]", i),
				Severity: SeverityError,
				Message:  fmt.Sprintf("invalid private key: %v", err),
			})
		}
	}

	if rec.ExplorerAPIKey == resolver.FallbackExplorerKey {
		findings = append(findings, Finding{
			Field:    "explorerApiKey",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%s not set; using placeholder key %q", resolver.EnvExplorerAPIKey, resolver.FallbackExplorerKey),
		})
	}

	for _, key := range resolver.Unconsumed(env) {
		findings = append(findings, Finding{
			Field:    key,
			Severity: SeverityInfo,
			Message:  "variable is set but not used by any setting",
		})
	}

	return findings
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// AccountAddress derives the account address of a hex-encoded secp256k1
// private key. A 0x prefix is optional.
func AccountAddress(hexKey string) (common.Address, error) {
	key, err := parsePrivateKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	if trimmed == "" {
		return nil, errEmptyKey
	}
	return crypto.HexToECDSA(trimmed)
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid rpc url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("rpc url %q must be an absolute http(s) or ws(s) url", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("rpc url %q has no host", raw)
	}
	return nil
}
