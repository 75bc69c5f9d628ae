package render

import "github.com/eugenenazirov/deployconf/internal/resolver"

// foundryConfig is the foundry.toml shape. Account keys are never written;
// foundry takes signers from the command line or a keystore.
type foundryConfig struct {
	Profile      map[string]foundryProfile   `toml:"profile"`
	RPCEndpoints map[string]string           `toml:"rpc_endpoints"`
	Etherscan    map[string]foundryEtherscan `toml:"etherscan"`
}

type foundryProfile struct {
	SolcVersion string `toml:"solc_version"`
}

type foundryEtherscan struct {
	Key   string `toml:"key"`
	URL   string `toml:"url"`
	Chain int64  `toml:"chain"`
}

func newFoundryConfig(rec resolver.Record) foundryConfig {
	return foundryConfig{
		Profile: map[string]foundryProfile{
			"default": {SolcVersion: rec.CompilerVersion},
		},
		RPCEndpoints: map[string]string{
			rec.NetworkName: rec.RPCURL,
		},
		Etherscan: map[string]foundryEtherscan{
			rec.NetworkName: {
				Key:   rec.ExplorerAPIKey,
				URL:   rec.ExplorerAPIURL,
				Chain: rec.ChainID,
			},
		},
	}
}
