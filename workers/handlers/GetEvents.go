package handlers

import (
	"net/http"
	"strconv"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
)

const defaultPageSize = 100

func queryInt(r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// GetEvents pages through the committed event log, oldest first.
func (a *API) GetEvents(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		badField(w, "offset", "Invalid offset")
		return
	}
	limit, ok := queryInt(r, "limit", defaultPageSize)
	if !ok || limit == 0 || limit > 1000 {
		badField(w, "limit", "Limit must be between 1 and 1000")
		return
	}
	events, err := a.Ledger.Events(r.Context(), offset, limit)
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	if events == nil {
		events = []types.Envelope{}
	}
	responseOK(w, events)
}

func (a *API) EventUsed(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")
	if len(common.FromHex(fp)) != common.HashLength {
		badField(w, "fingerprint", "Fingerprint must be 32 bytes of hex")
		return
	}
	responseOK(w, a.Bridge.IsEventUsed(common.HexToHash(fp)))
}

func (a *API) GetDispatch(w http.ResponseWriter, r *http.Request) {
	d, err := a.Ledger.GetDispatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		responseJSON(w, &APIResponse{Status: "error", Message: "dispatch not found"}, http.StatusNotFound)
		return
	}
	responseOK(w, d)
}

func (a *API) DispatchStats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.Ledger.DispatchCounts(r.Context())
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, counts)
}
