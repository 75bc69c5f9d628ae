package render

import "github.com/eugenenazirov/deployconf/internal/resolver"

// hardhatConfig mirrors the subset of HardhatUserConfig the record fills.
type hardhatConfig struct {
	Solidity  string                    `json:"solidity"`
	Networks  map[string]hardhatNetwork `json:"networks"`
	Etherscan hardhatEtherscan          `json:"etherscan"`
	Sourcify  hardhatSourcify           `json:"sourcify"`
	Typechain resolver.TypeBindings     `json:"typechain"`
}

type hardhatNetwork struct {
	URL      string   `json:"url"`
	Accounts []string `json:"accounts"`
}

type hardhatEtherscan struct {
	APIKey       map[string]string      `json:"apiKey"`
	CustomChains []resolver.CustomChain `json:"customChains"`
}

type hardhatSourcify struct {
	Enabled bool `json:"enabled"`
}

func newHardhatConfig(rec resolver.Record) hardhatConfig {
	dep := rec.Deployment()
	ver := rec.Verification()

	return hardhatConfig{
		Solidity: dep.CompilerVersion,
		Networks: map[string]hardhatNetwork{
			dep.NetworkName: {
				URL:      dep.RPCURL,
				Accounts: dep.AccountKeys,
			},
		},
		Etherscan: hardhatEtherscan{
			APIKey:       ver.APIKeys,
			CustomChains: ver.CustomChains,
		},
		Sourcify:  hardhatSourcify{Enabled: ver.SourcifyEnabled},
		Typechain: rec.TypeBindings(),
	}
}
