package chaincheck

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/eugenenazirov/deployconf/internal/resolver"
)

const defaultProbeTimeout = 10 * time.Second

// ErrChainIDMismatch is returned when the endpoint serves a different chain
// than the record declares.
var ErrChainIDMismatch = errors.New("rpc endpoint chain id does not match configuration")

// Report is the outcome of a live probe.
type Report struct {
	RPCURL          string          `json:"rpcUrl"`
	ExpectedChainID int64           `json:"expectedChainId"`
	ReportedChainID string          `json:"reportedChainId"`
	ChainIDMatches  bool            `json:"chainIdMatches"`
	LatestBlock     uint64          `json:"latestBlock"`
	Accounts        []AccountReport `json:"accounts"`
	LatencyMs       int64           `json:"latencyMs"`
}

// AccountReport describes one configured deployer account. Keys that cannot
// be parsed are reported with Error set.
type AccountReport struct {
	Address    string `json:"address,omitempty"`
	BalanceWei string `json:"balanceWei,omitempty"`
	Error      string `json:"error,omitempty"`
}

type chainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	Close()
}

type dialFunc func(ctx context.Context, rawURL string) (chainReader, error)

// Prober queries the record's RPC endpoint.
type Prober struct {
	timeout time.Duration
	dial    dialFunc
}

// NewProber creates a Prober bounding every probe by timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Prober{
		timeout: timeout,
		dial: func(ctx context.Context, rawURL string) (chainReader, error) {
			client, err := ethclient.DialContext(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Probe dials rec.RPCURL, reads the chain ID, the latest block and the balance
// of every configured account. When the chain ID differs from rec.ChainID the
// filled report is returned together with ErrChainIDMismatch.
func (p *Prober) Probe(ctx context.Context, rec resolver.Record) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	report := Report{
		RPCURL:          rec.RPCURL,
		ExpectedChainID: rec.ChainID,
		Accounts:        []AccountReport{},
	}

	start := time.Now()
	client, err := p.dial(ctx, rec.RPCURL)
	if err != nil {
		return report, fmt.Errorf("dial %s: %w", rec.RPCURL, err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return report, fmt.Errorf("read chain id: %w", err)
	}
	report.LatencyMs = time.Since(start).Milliseconds()
	report.ReportedChainID = chainID.String()
	report.ChainIDMatches = chainID.Cmp(big.NewInt(rec.ChainID)) == 0

	block, err := client.BlockNumber(ctx)
	if err != nil {
		return report, fmt.Errorf("read block number: %w", err)
	}
	report.LatestBlock = block

	for _, key := range rec.AccountKeys {
		report.Accounts = append(report.Accounts, p.account(ctx, client, key))
	}

	if !report.ChainIDMatches {
		return report, fmt.Errorf("%w: expected %d, endpoint reports %s", ErrChainIDMismatch, rec.ChainID, report.ReportedChainID)
	}
	return report, nil
}

func (p *Prober) account(ctx context.Context, client chainReader, key string) AccountReport {
	addr, err := AccountAddress(key)
	if err != nil {
		return AccountReport{Error: fmt.Sprintf("invalid private key: %v", err)}
	}

	out := AccountReport{Address: addr.Hex()}
	balance, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		out.Error = fmt.Sprintf("read balance: %v", err)
		return out
	}
	out.BalanceWei = balance.String()
	return out
}
