package handlers

import (
	"math/big"
	"net/http"
	"sort"
	"strconv"

	"gomosbridge/types"

	"github.com/go-chi/chi"
)

type tokenResponse struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	ToChains   []string    `json:"to_chains"`
	MinBalance *types.U128 `json:"min_balance"`
	Decimals   uint8       `json:"decimals"`
	Registered bool        `json:"registered"`
}

type registerTokenRequest struct {
	Token      string      `json:"token"`
	Kind       string      `json:"kind"`
	Decimals   uint8       `json:"decimals"`
	MinBalance *types.U128 `json:"min_balance"`
}

type decimalsRequest struct {
	Decimals uint8 `json:"decimals"`
}

type minBalanceRequest struct {
	MinBalance *types.U128 `json:"min_balance"`
}

type registeredRequest struct {
	Registered bool `json:"registered"`
}

func chainParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "chain"), 10, 64)
	if err != nil {
		badField(w, "chain", "Invalid chain id")
		return 0, false
	}
	return id, true
}

func (a *API) GetToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "token")
	rec, ok := a.Bridge.Token(id)
	if !ok {
		responseJSON(w, &APIResponse{Status: "error", Message: "unknown token"}, http.StatusNotFound)
		return
	}
	chains := make([]uint64, 0, len(rec.ToChains))
	for c := range rec.ToChains {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	res := &tokenResponse{
		ID:         id,
		Kind:       rec.Kind.String(),
		ToChains:   make([]string, len(chains)),
		MinBalance: types.NewU128(new(big.Int)),
		Decimals:   rec.Decimals,
		Registered: a.Bridge.IsRegistered(id),
	}
	for i, c := range chains {
		res.ToChains[i] = strconv.FormatUint(c, 10)
	}
	if rec.MinBalance != nil {
		res.MinBalance = types.NewU128(rec.MinBalance)
	}
	responseOK(w, res)
}

// RouteSupported tells whether {token} may be sent to {chain}.
func (a *API) RouteSupported(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainParam(w, r)
	if !ok {
		return
	}
	responseOK(w, a.Bridge.IsRouteSupported(chi.URLParam(r, "token"), chain))
}

func (a *API) ChainType(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainParam(w, r)
	if !ok {
		return
	}
	responseOK(w, a.Bridge.Classify(chain).String())
}

func (a *API) RegisterToken(w http.ResponseWriter, r *http.Request) {
	var req registerTokenRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	kind, err := types.ParseTokenKind(req.Kind)
	if err != nil {
		badField(w, "kind", err.Error())
		return
	}
	var minBalance *big.Int
	if req.MinBalance != nil {
		minBalance = req.MinBalance.Big()
	}
	a.adminDone(w, r, a.Bridge.RegisterToken(r.Context(), CallerFrom(r.Context()), req.Token, kind, req.Decimals, minBalance))
}

func (a *API) AddTokenToChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainParam(w, r)
	if !ok {
		return
	}
	a.adminDone(w, r, a.Bridge.AddTokenToChain(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "token"), chain))
}

func (a *API) RemoveTokenToChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := chainParam(w, r)
	if !ok {
		return
	}
	a.adminDone(w, r, a.Bridge.RemoveTokenToChain(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "token"), chain))
}

func (a *API) SetTokenDecimals(w http.ResponseWriter, r *http.Request) {
	var req decimalsRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetTokenDecimals(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "token"), req.Decimals))
}

func (a *API) SetMinBalance(w http.ResponseWriter, r *http.Request) {
	var req minBalanceRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	if req.MinBalance == nil {
		badField(w, "min_balance", "No min balance provided")
		return
	}
	a.adminDone(w, r, a.Bridge.SetMinBalance(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "token"), req.MinBalance.Big()))
}

func (a *API) SetTokenRegistered(w http.ResponseWriter, r *http.Request) {
	var req registeredRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	a.adminDone(w, r, a.Bridge.SetTokenRegistered(r.Context(), CallerFrom(r.Context()), chi.URLParam(r, "token"), req.Registered))
}
