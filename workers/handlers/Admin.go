package handlers

import (
	"net/http"

	"gomosbridge/bridge"
	"gomosbridge/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
)

type accountRequest struct {
	Account string `json:"account"`
}

type addressRequest struct {
	Address string `json:"address"`
}

type chainIDRequest struct {
	ChainID uint64 `json:"chain_id,string"`
}

type chainTypeRequest struct {
	ChainID   uint64 `json:"chain_id,string"`
	ChainType string `json:"chain_type"`
}

type pausedRequest struct {
	Paused []string `json:"paused"`
}

type upgradeRequest struct {
	CodeHash string `json:"code_hash"`
}

type releaseRequest struct {
	Account  string `json:"account"`
	Token    string `json:"token"`
	Receiver string `json:"receiver"`
}

// adminDone answers a state-changing admin call without a result.
func (a *API) adminDone(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseJSON(w, &APIResponse{Status: "ok"}, http.StatusOK)
}

func (a *API) SetOwner(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetOwner(r.Context(), CallerFrom(r.Context()), req.Account))
}

func (a *API) SetLightClient(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetLightClient(r.Context(), CallerFrom(r.Context()), req.Account))
}

func (a *API) SetRelayAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if !common.IsHexAddress(req.Address) || ethav.Validate(common.HexToAddress(req.Address).Hex()) != nil {
		badField(w, "address", "No ethereum address or invalid address provided")
		return
	}
	a.adminDone(w, r, a.Bridge.SetRelayAddress(r.Context(), CallerFrom(r.Context()), req.Address))
}

func (a *API) SetLocalChainID(w http.ResponseWriter, r *http.Request) {
	var req chainIDRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetLocalChainID(r.Context(), CallerFrom(r.Context()), req.ChainID))
}

func (a *API) SetRelayChainID(w http.ResponseWriter, r *http.Request) {
	var req chainIDRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetRelayChainID(r.Context(), CallerFrom(r.Context()), req.ChainID))
}

func (a *API) SetChainType(w http.ResponseWriter, r *http.Request) {
	var req chainTypeRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ct := types.ParseChainType(req.ChainType)
	a.adminDone(w, r, a.Bridge.SetChainType(r.Context(), CallerFrom(r.Context()), req.ChainID, ct))
}

func (a *API) SetPaused(w http.ResponseWriter, r *http.Request) {
	var req pausedRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	categories := make([]bridge.PauseCategory, 0, len(req.Paused))
	for _, name := range req.Paused {
		c, err := bridge.ParsePauseCategory(name)
		if err != nil {
			badField(w, "paused", err.Error())
			return
		}
		categories = append(categories, c)
	}
	a.adminDone(w, r, a.Bridge.SetPausedMask(r.Context(), CallerFrom(r.Context()), bridge.NewPauseMask(categories...)))
}

func (a *API) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	h := common.HexToHash(req.CodeHash)
	if h == (common.Hash{}) {
		badField(w, "code_hash", "No code hash provided")
		return
	}
	res, err := a.Bridge.RequestUpgrade(r.Context(), CallerFrom(r.Context()), h)
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, res)
}

// TakeAmountOut hands over and clears the top-up balance of {account}.
func (a *API) TakeAmountOut(w http.ResponseWriter, r *http.Request) {
	taken, err := a.Bridge.TakeAmountOut(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "account"))
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, types.NewU128(taken))
}

func (a *API) ReleaseLostFound(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	res, err := a.Bridge.ReleaseLostFound(r.Context(), CallerFrom(r.Context()), req.Account, req.Token, req.Receiver)
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, res)
}
