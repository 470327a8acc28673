package bridge

import (
	"context"
	"math/big"

	"gomosbridge/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

func (t *Txn) requireOwner(caller string) error {
	if caller == "" || caller != t.settings.Owner {
		return errors.Wrapf(ErrUnauthorizedCaller, "%q is not the owner", caller)
	}
	return nil
}

func requireHalted(ok bool, what string) error {
	if !ok {
		return errors.Wrapf(ErrOperationNotPaused, "pause %s first", what)
	}
	return nil
}

func (s *Service) admin(ctx context.Context, op, caller string, fn func(t *Txn) error) error {
	_, err := s.execute(ctx, op, func(t *Txn) error {
		if err := t.requireOwner(caller); err != nil {
			return err
		}
		return fn(t)
	})
	return err
}

func (s *Service) SetOwner(ctx context.Context, caller, owner string) error {
	return s.admin(ctx, "set_owner", caller, func(t *Txn) error {
		if !validLocalAccount(owner) {
			return errors.Wrapf(ErrInvalidArgument, "invalid owner account %q", owner)
		}
		t.updateSettings(func(st *Settings) { st.Owner = owner })
		return nil
	})
}

func (s *Service) SetChainType(ctx context.Context, caller string, chainID uint64, ct types.ChainType) error {
	return s.admin(ctx, "set_chain_type", caller, func(t *Txn) error {
		t.setChainType(chainID, ct)
		return nil
	})
}

func (s *Service) SetLightClient(ctx context.Context, caller, account string) error {
	return s.admin(ctx, "set_light_client", caller, func(t *Txn) error {
		if err := requireHalted(t.settings.Paused.inboundHalted(), "transfer in"); err != nil {
			return err
		}
		if !validLocalAccount(account) {
			return errors.Wrapf(ErrInvalidArgument, "invalid light client account %q", account)
		}
		t.updateSettings(func(st *Settings) { st.LightClient = account })
		return nil
	})
}

func (s *Service) SetLocalChainID(ctx context.Context, caller string, chainID uint64) error {
	return s.admin(ctx, "set_local_chain_id", caller, func(t *Txn) error {
		if err := requireHalted(t.settings.Paused.outboundHalted(), "transfer out and deposit out"); err != nil {
			return err
		}
		t.updateSettings(func(st *Settings) { st.LocalChainID = chainID })
		return nil
	})
}

func (s *Service) SetRelayChainID(ctx context.Context, caller string, chainID uint64) error {
	return s.admin(ctx, "set_relay_chain_id", caller, func(t *Txn) error {
		if err := requireHalted(t.settings.Paused.depositOutHalted(), "deposit out"); err != nil {
			return err
		}
		t.updateSettings(func(st *Settings) { st.RelayChainID = chainID })
		return nil
	})
}

func (s *Service) SetRelayAddress(ctx context.Context, caller, address string) error {
	return s.admin(ctx, "set_relay_address", caller, func(t *Txn) error {
		if err := requireHalted(t.settings.Paused.inboundHalted(), "transfer in"); err != nil {
			return err
		}
		if !common.IsHexAddress(address) {
			return errors.Wrapf(ErrInvalidDestinationEncoding, "relay address %q", address)
		}
		addr := common.HexToAddress(address)
		if err := ethav.Validate(addr.Hex()); err != nil {
			return errors.Wrapf(ErrInvalidDestinationEncoding, "relay address %s: %s", address, err.Error())
		}
		t.updateSettings(func(st *Settings) { st.RelayAddress = addr })
		return nil
	})
}

// RequestUpgrade records the new code hash and queues the redeploy. Every
// category must be paused so no transfer straddles two code versions.
func (s *Service) RequestUpgrade(ctx context.Context, caller string, codeHash common.Hash) (*Result, error) {
	return s.execute(ctx, "upgrade", func(t *Txn) error {
		if err := t.requireOwner(caller); err != nil {
			return err
		}
		if err := requireHalted(t.settings.Paused.fullyHalted(), "every category"); err != nil {
			return err
		}
		if codeHash == (common.Hash{}) {
			return errors.Wrap(ErrInvalidArgument, "empty code hash")
		}
		t.updateSettings(func(st *Settings) { st.CodeHash = codeHash })
		d := t.dispatch(&types.Dispatch{Kind: types.DispatchUpgrade, CodeHash: codeHash})
		t.emit(types.UpgradeRequestedEvent{CodeHash: codeHash, RequestedBy: caller, DispatchID: d.ID})
		return nil
	})
}

func (s *Service) SetPausedMask(ctx context.Context, caller string, mask PauseMask) error {
	return s.admin(ctx, "set_paused", caller, func(t *Txn) error {
		if !mask.Valid() {
			return errors.Wrapf(ErrInvalidArgument, "invalid pause mask %d", mask)
		}
		t.updateSettings(func(st *Settings) { st.Paused = mask })
		return nil
	})
}

func (t *Txn) registerToken(id string, kind types.TokenKind, decimals uint8, minBalance *big.Int) error {
	if !validLocalAccount(id) {
		return errors.Wrapf(ErrInvalidArgument, "invalid token account %q", id)
	}
	if kind != types.TokenBridged && kind != types.TokenGeneric {
		return errors.Wrapf(ErrInvalidArgument, "invalid token kind %d", kind)
	}
	if rec, ok := t.tokenForUpdate(id); ok {
		if rec.Kind != kind {
			return errors.Wrapf(ErrTokenKindConflict, "%s is %s", id, rec.Kind)
		}
		rec.Decimals = decimals
		rec.MinBalance = copyInt(minBalance)
		return nil
	}
	t.putToken(id, &types.TokenRecord{
		Kind:       kind,
		ToChains:   make(map[uint64]bool),
		MinBalance: copyInt(minBalance),
		Decimals:   decimals,
	})
	return nil
}

// RegisterToken adds a token to the registry, or updates decimals and min
// balance of an existing one of the same kind. Bridged tokens are deployed by
// the bridge and follow the deploy pause.
func (s *Service) RegisterToken(ctx context.Context, caller, token string, kind types.TokenKind, decimals uint8, minBalance *big.Int) error {
	return s.admin(ctx, "register_token", caller, func(t *Txn) error {
		if kind == types.TokenBridged {
			if err := checkNotPaused(t.settings.Paused, PauseDeployToken); err != nil {
				return err
			}
		}
		return t.registerToken(token, kind, decimals, minBalance)
	})
}

func (s *Service) updateToken(ctx context.Context, op, caller, token string, fn func(rec *types.TokenRecord) error) error {
	return s.admin(ctx, op, caller, func(t *Txn) error {
		rec, ok := t.tokenForUpdate(token)
		if !ok {
			return errors.Wrapf(ErrUnknownToken, "token %s", token)
		}
		return fn(rec)
	})
}

func (s *Service) AddTokenToChain(ctx context.Context, caller, token string, chainID uint64) error {
	return s.updateToken(ctx, "add_token_to_chain", caller, token, func(rec *types.TokenRecord) error {
		rec.ToChains[chainID] = true
		return nil
	})
}

func (s *Service) RemoveTokenToChain(ctx context.Context, caller, token string, chainID uint64) error {
	return s.updateToken(ctx, "remove_token_to_chain", caller, token, func(rec *types.TokenRecord) error {
		delete(rec.ToChains, chainID)
		return nil
	})
}

func (s *Service) SetTokenDecimals(ctx context.Context, caller, token string, decimals uint8) error {
	return s.updateToken(ctx, "set_token_decimals", caller, token, func(rec *types.TokenRecord) error {
		rec.Decimals = decimals
		return nil
	})
}

func (s *Service) SetMinBalance(ctx context.Context, caller, token string, minBalance *big.Int) error {
	return s.updateToken(ctx, "set_min_balance", caller, token, func(rec *types.TokenRecord) error {
		if rec.Kind != types.TokenGeneric {
			return errors.Wrapf(ErrTokenKindConflict, "min balance applies to generic tokens, %s is %s", token, rec.Kind)
		}
		rec.MinBalance = copyInt(minBalance)
		return nil
	})
}

// copyInt detaches a caller's value from the registry.
func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func (s *Service) SetTokenRegistered(ctx context.Context, caller, token string, registered bool) error {
	return s.admin(ctx, "set_token_registered", caller, func(t *Txn) error {
		if _, ok := t.token(token); !ok {
			return errors.Wrapf(ErrUnknownToken, "token %s", token)
		}
		t.setRegistered(token, registered)
		return nil
	})
}

// TakeAmountOut hands the sender's pending top-up to the reconciling caller
// and clears it. A second call returns zero.
func (s *Service) TakeAmountOut(ctx context.Context, caller, account string) (*big.Int, error) {
	var taken *big.Int
	err := s.admin(ctx, "take_amount_out", caller, func(t *Txn) error {
		taken = t.takeAmountOut(account)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// ReleaseLostFound credits a quarantined balance to receiver and clears the entry.
func (s *Service) ReleaseLostFound(ctx context.Context, caller, account, token, receiver string) (*Result, error) {
	return s.execute(ctx, "release_lost_found", func(t *Txn) error {
		if err := t.requireOwner(caller); err != nil {
			return err
		}
		if !validLocalAccount(receiver) {
			return errors.Wrapf(ErrInvalidDestinationEncoding, "receiver %q", receiver)
		}
		k := LostFoundKey{Account: account, Token: token}
		v := t.lostFoundOf(k)
		if v.Sign() == 0 {
			return errors.Wrapf(ErrInvalidArgument, "nothing in lost and found for %s/%s", account, token)
		}
		t.setLostFound(k, new(big.Int))
		t.dispatch(&types.Dispatch{
			Kind:     types.DispatchCredit,
			Token:    token,
			Receiver: receiver,
			Amount:   v,
		})
		return nil
	})
}

// getters

func (s *Service) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

func (s *Service) Owner() string { return s.Settings().Owner }
func (s *Service) LightClient() string { return s.Settings().LightClient }
func (s *Service) LocalChainID() uint64 { return s.Settings().LocalChainID }
func (s *Service) RelayChainID() uint64 { return s.Settings().RelayChainID }
func (s *Service) Nonce() uint64 { return s.Settings().Nonce }
func (s *Service) PausedMask() PauseMask { return s.Settings().Paused }

func (s *Service) RelayAddress() common.Address { return s.Settings().RelayAddress }

func (s *Service) IsPaused(c PauseCategory) bool {
	return s.Settings().Paused.Has(c)
}

// CheckNotPaused fails with ErrOperationPaused when c is paused.
func (s *Service) CheckNotPaused(c PauseCategory) error {
	return checkNotPaused(s.Settings().Paused, c)
}

func (s *Service) Classify(chainID uint64) types.ChainType {
	var ct types.ChainType
	s.view(func(t *Txn) { ct = t.classify(chainID) })
	return ct
}

func (s *Service) IsRouteSupported(token string, chainID uint64) bool {
	var ok bool
	s.view(func(t *Txn) { ok = t.isRouteSupported(token, chainID) })
	return ok
}

func (s *Service) Token(id string) (*types.TokenRecord, bool) {
	var rec *types.TokenRecord
	s.view(func(t *Txn) {
		if r, ok := t.token(id); ok {
			rec = r.Clone()
		}
	})
	return rec, rec != nil
}

func (s *Service) MinBalance(token string) (*big.Int, error) {
	rec, ok := s.Token(token)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownToken, "token %s", token)
	}
	if rec.MinBalance == nil {
		return new(big.Int), nil
	}
	return rec.MinBalance, nil
}

func (s *Service) Decimals(token string) (uint8, error) {
	rec, ok := s.Token(token)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownToken, "token %s", token)
	}
	return rec.Decimals, nil
}

func (s *Service) IsRegistered(token string) bool {
	var ok bool
	s.view(func(t *Txn) { ok = t.isRegistered(token) })
	return ok
}

func (s *Service) AmountOut(account string) *big.Int {
	var v *big.Int
	s.view(func(t *Txn) { v = t.amountOutOf(account) })
	return v
}

func (s *Service) LostFound(account, token string) *big.Int {
	var v *big.Int
	s.view(func(t *Txn) { v = t.lostFoundOf(LostFoundKey{Account: account, Token: token}) })
	return v
}

// LostFoundEntries lists every quarantined token balance of account.
func (s *Service) LostFoundEntries(account string) map[string]*big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*big.Int)
	for k, v := range s.state.LostFound {
		if k.Account == account {
			out[k.Token] = new(big.Int).Set(v)
		}
	}
	return out
}
