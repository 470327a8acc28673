package handlers

import (
	"net/http"

	"gomosbridge/types"

	"github.com/go-chi/chi"
)

func (a *API) AmountOut(w http.ResponseWriter, r *http.Request) {
	responseOK(w, types.NewU128(a.Bridge.AmountOut(chi.URLParam(r, "account"))))
}

// LostFound lists the quarantined balances of {account} per token.
func (a *API) LostFound(w http.ResponseWriter, r *http.Request) {
	entries := a.Bridge.LostFoundEntries(chi.URLParam(r, "account"))
	out := make(map[string]*types.U128, len(entries))
	for token, v := range entries {
		out[token] = types.NewU128(v)
	}
	responseOK(w, out)
}
