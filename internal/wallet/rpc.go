package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"storyai/internal/logging"
)

// RPCOracle reads SPL token balances from Solana JSON-RPC endpoints. The
// primary endpoint is tried first, then each fallback in order.
type RPCOracle struct {
	Endpoints []string
	Mint      string

	mu      sync.Mutex
	clients map[string]*rpc.Client
}

// NewRPCOracle returns an oracle for mint querying endpoint then fallbacks.
func NewRPCOracle(endpoint, mint string, fallbacks ...string) *RPCOracle {
	return &RPCOracle{
		Endpoints: append([]string{endpoint}, fallbacks...),
		Mint:      mint,
		clients:   make(map[string]*rpc.Client),
	}
}

// parsedTokenAccount is the jsonParsed shape of an SPL token account.
type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				UIAmount *float64 `json:"uiAmount"`
			} `json:"tokenAmount"`
		} `json:"info"`
	} `json:"parsed"`
}

// Balance sums the owner's token accounts for the configured mint. An owner
// without an account for the mint has a zero balance.
func (o *RPCOracle) Balance(ctx context.Context, address string) (float64, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	mint, err := solana.PublicKeyFromBase58(o.Mint)
	if err != nil {
		return 0, fmt.Errorf("invalid token mint %q: %w", o.Mint, err)
	}

	var errs []error
	for _, endpoint := range o.Endpoints {
		if endpoint == "" {
			continue
		}
		v, err := o.query(ctx, endpoint, owner, mint)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		logging.Get(logging.CategoryWallet).Warn("rpc %s failed: %v", endpoint, err)
		errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
	}
	if len(errs) == 0 {
		return 0, errors.New("no rpc endpoint configured")
	}
	return 0, fmt.Errorf("unable to connect to Solana network: %w", errors.Join(errs...))
}

func (o *RPCOracle) client(endpoint string) *rpc.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.clients == nil {
		o.clients = make(map[string]*rpc.Client)
	}
	c, ok := o.clients[endpoint]
	if !ok {
		c = rpc.New(endpoint)
		o.clients[endpoint] = c
	}
	return c
}

func (o *RPCOracle) query(ctx context.Context, endpoint string, owner, mint solana.PublicKey) (float64, error) {
	out, err := o.client(endpoint).GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed, Commitment: rpc.CommitmentConfirmed},
	)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return 0, fmt.Errorf("rpc error %d: %s", rpcErr.Code, rpcErr.Message)
		}
		return 0, err
	}
	if out == nil {
		return 0, errors.New("empty rpc result")
	}

	var total float64
	for _, acc := range out.Value {
		if acc == nil || acc.Account.Data == nil || len(acc.Account.Data.GetRawJSON()) == 0 {
			continue
		}
		var parsed parsedTokenAccount
		if err := json.Unmarshal(acc.Account.Data.GetRawJSON(), &parsed); err != nil {
			return 0, fmt.Errorf("decode token account %s: %w", acc.Pubkey, err)
		}
		info := parsed.Parsed.Info
		if !strings.EqualFold(info.Mint, o.Mint) || info.TokenAmount.UIAmount == nil {
			continue
		}
		total += *info.TokenAmount.UIAmount
	}
	logging.WalletDebug("balance for %s via %s: %v", Shorten(owner.String()), endpoint, total)
	return total, nil
}

// Close releases the idle connections of every endpoint client.
func (o *RPCOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []error
	for endpoint, c := range o.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(o.clients, endpoint)
	}
	return errors.Join(errs...)
}
