package resolver

// Recognized environment variables.
const (
	EnvRPCURL          = "BASE_SEPOLIA_URL"
	EnvPrivateKey      = "PRIVATE_KEY"
	EnvExplorerAPIKey  = "BASE_API_KEY"
	EnvEtherscanAPIKey = "ETHERSCAN_API_KEY"
)

const (
	CompilerVersion      = "0.8.28"
	NetworkName          = "lisk-sepolia"
	DefaultRPCURL        = "https://rpc.sepolia-api.lisk.com"
	FallbackExplorerKey  = "123"
	ChainID              = 4202
	ExplorerAPIURL       = "https://sepolia-blockscout.lisk.com/api"
	ExplorerBrowserURL   = "https://sepolia-blockscout.lisk.com"
	TypeBindingOutputDir = "typechain-types"
	TypeBindingTarget    = "ethers-v5"
)

// Record is the resolved parameter bundle. It is built once by Resolve and is
// only read afterwards; callers must not modify AccountKeys in place.
type Record struct {
	CompilerVersion      string   `json:"compilerVersion" yaml:"compilerVersion"`
	NetworkName          string   `json:"networkName" yaml:"networkName"`
	RPCURL               string   `json:"rpcUrl" yaml:"rpcUrl"`
	AccountKeys          []string `json:"accountKeys" yaml:"accountKeys"`
	ExplorerAPIKey       string   `json:"explorerApiKey" yaml:"explorerApiKey"`
	ChainID              int64    `json:"chainId" yaml:"chainId"`
	ExplorerAPIURL       string   `json:"explorerApiUrl" yaml:"explorerApiUrl"`
	ExplorerBrowserURL   string   `json:"explorerBrowserUrl" yaml:"explorerBrowserUrl"`
	SourcifyEnabled      bool     `json:"sourcifyEnabled" yaml:"sourcifyEnabled"`
	TypeBindingOutputDir string   `json:"typeBindingOutputDir" yaml:"typeBindingOutputDir"`
	TypeBindingTarget    string   `json:"typeBindingTarget" yaml:"typeBindingTarget"`
}

// Resolve builds a Record from env. An override applies only when the key is
// present with a non-empty value; otherwise the fallback is used.
func Resolve(env Environment) Record {
	accounts := []string{}
	if key, ok := env.override(EnvPrivateKey); ok {
		accounts = append(accounts, key)
	}

	// Recognized but not consumed by any field.
	_, _ = env.Lookup(EnvEtherscanAPIKey)

	return Record{
		CompilerVersion:      CompilerVersion,
		NetworkName:          NetworkName,
		RPCURL:               env.valueOr(EnvRPCURL, DefaultRPCURL),
		AccountKeys:          accounts,
		ExplorerAPIKey:       env.valueOr(EnvExplorerAPIKey, FallbackExplorerKey),
		ChainID:              ChainID,
		ExplorerAPIURL:       ExplorerAPIURL,
		ExplorerBrowserURL:   ExplorerBrowserURL,
		SourcifyEnabled:      false,
		TypeBindingOutputDir: TypeBindingOutputDir,
		TypeBindingTarget:    TypeBindingTarget,
	}
}

// Unconsumed lists recognized variables that are set in env but feed no
// Record field.
func Unconsumed(env Environment) []string {
	var keys []string
	if _, ok := env.override(EnvEtherscanAPIKey); ok {
		keys = append(keys, EnvEtherscanAPIKey)
	}
	return keys
}

// Deployment is the part of the record consumed by the compiler and
// network-deployment layer.
type Deployment struct {
	CompilerVersion string   `json:"compilerVersion"`
	NetworkName     string   `json:"networkName"`
	RPCURL          string   `json:"rpcUrl"`
	AccountKeys     []string `json:"accountKeys"`
}

// CustomChain teaches the verification plugin about a network it does not
// know natively.
type CustomChain struct {
	Network string          `json:"network"`
	ChainID int64           `json:"chainId"`
	URLs    CustomChainURLs `json:"urls"`
}

// CustomChainURLs holds the explorer endpoints of a CustomChain.
type CustomChainURLs struct {
	APIURL     string `json:"apiURL"`
	BrowserURL string `json:"browserURL"`
}

// Verification is the part of the record consumed by the explorer
// verification plugin.
type Verification struct {
	APIKeys         map[string]string `json:"apiKey"`
	CustomChains    []CustomChain     `json:"customChains"`
	SourcifyEnabled bool              `json:"sourcifyEnabled"`
}

// TypeBindings is the part of the record consumed by the binding generator.
type TypeBindings struct {
	OutDir string `json:"outDir"`
	Target string `json:"target"`
}

func (r Record) Deployment() Deployment {
	return Deployment{
		CompilerVersion: r.CompilerVersion,
		NetworkName:     r.NetworkName,
		RPCURL:          r.RPCURL,
		AccountKeys:     r.Accounts(),
	}
}

func (r Record) Verification() Verification {
	return Verification{
		APIKeys: map[string]string{r.NetworkName: r.ExplorerAPIKey},
		CustomChains: []CustomChain{{
			Network: r.NetworkName,
			ChainID: r.ChainID,
			URLs: CustomChainURLs{
				APIURL:     r.ExplorerAPIURL,
				BrowserURL: r.ExplorerBrowserURL,
			},
		}},
		SourcifyEnabled: r.SourcifyEnabled,
	}
}

func (r Record) TypeBindings() TypeBindings {
	return TypeBindings{
		OutDir: r.TypeBindingOutputDir,
		Target: r.TypeBindingTarget,
	}
}

// Accounts returns a copy of the account keys, never nil.
func (r Record) Accounts() []string {
	out := make([]string, len(r.AccountKeys))
	copy(out, r.AccountKeys)
	return out
}

// Redacted returns a copy of r with private keys and the explorer API key
// masked, suitable for logs and HTTP responses.
func (r Record) Redacted() Record {
	out := r
	out.AccountKeys = make([]string, len(r.AccountKeys))
	for i, key := range r.AccountKeys {
		out.AccountKeys[i] = Mask(key)
	}
	out.ExplorerAPIKey = Mask(r.ExplorerAPIKey)
	return out
}

// Mask hides all but the edges of a secret. Short values are replaced entirely.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= 12 {
		return "****"
	}
	return string(runes[:6]) + "..." + string(runes[len(runes)-4:])
}
