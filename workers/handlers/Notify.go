package handlers

import (
	"net/http"

	"gomosbridge/bridge"
)

// Notify receives ft_on_transfer style notifications. The authenticated
// caller is the token contract that moved the funds.
func (a *API) Notify(w http.ResponseWriter, r *http.Request) {
	var n bridge.TokenNotification
	if !a.decodeBody(w, r, &n) {
		return
	}
	caller := CallerFrom(r.Context())
	if n.Token == "" {
		n.Token = caller
	}
	if caller == "" || n.Token != caller {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "token",
			Message: "notification must come from the token contract",
		}, http.StatusForbidden)
		return
	}
	if n.Amount == nil {
		badField(w, "amount", "No amount provided")
		return
	}

	res, err := a.Bridge.OnTransfer(r.Context(), n)
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, res)
}
