package config

import (
	"math/big"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

func parseAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("%s: invalid amount %q", field, s)
	}
	return v, nil
}

func (f FeeConfig) rate(name string) (bridge.FeeRate, error) {
	r := bridge.FeeRate{RateBps: f.RateBps, Receiver: f.Receiver}
	var err error
	if r.Fixed, err = parseAmount(name+".fixed", f.Fixed); err != nil {
		return r, err
	}
	if r.Min, err = parseAmount(name+".min", f.Min); err != nil {
		return r, err
	}
	if r.Max, err = parseAmount(name+".max", f.Max); err != nil {
		return r, err
	}
	if r.RateBps > 10000 {
		return r, errors.Errorf("%s: rate_bps %d above 100%%", name, r.RateBps)
	}
	return r, nil
}

// FeePolicy builds the swap fee schedule.
func (c *Configuration) FeePolicy() (*bridge.RatePolicy, error) {
	def, err := c.Fees.Default.rate("fees.default")
	if err != nil {
		return nil, err
	}
	p := &bridge.RatePolicy{Default: def, Tokens: make(map[string]bridge.FeeRate)}
	for token, fc := range c.Fees.Tokens {
		r, err := fc.rate("fees.tokens." + token)
		if err != nil {
			return nil, err
		}
		p.Tokens[token] = r
	}
	return p, nil
}

// Genesis builds the initial bridge state from the bridge, chain_types and
// tokens sections.
func (c *Configuration) Genesis() (bridge.Genesis, error) {
	b := c.Bridge
	g := bridge.Genesis{
		Owner:        b.Owner,
		LightClient:  b.LightClient,
		LocalChainID: b.LocalChainID,
		RelayChainID: b.RelayChainID,
		ChainTypes:   make(map[uint64]types.ChainType),
	}
	if b.RelayAddress != "" {
		if !common.IsHexAddress(b.RelayAddress) {
			return g, errors.Errorf("bridge.relay_address: invalid address %q", b.RelayAddress)
		}
		g.RelayAddress = common.HexToAddress(b.RelayAddress)
	}
	for _, name := range b.Paused {
		cat, err := bridge.ParsePauseCategory(name)
		if err != nil {
			return g, errors.Wrap(err, "bridge.paused")
		}
		g.Paused |= bridge.NewPauseMask(cat)
	}
	for id, name := range c.ChainTypes {
		g.ChainTypes[id] = types.ParseChainType(name)
	}
	for _, tc := range c.Tokens {
		kind, err := types.ParseTokenKind(tc.Kind)
		if err != nil {
			return g, errors.Wrapf(err, "tokens.%s", tc.ID)
		}
		minBalance, err := parseAmount("tokens."+tc.ID+".min_balance", tc.MinBalance)
		if err != nil {
			return g, err
		}
		g.Tokens = append(g.Tokens, bridge.GenesisToken{
			ID:         tc.ID,
			Kind:       kind,
			ToChains:   tc.ToChains,
			MinBalance: minBalance,
			Decimals:   tc.Decimals,
			Registered: tc.Registered,
		})
	}
	return g, nil
}
