package handlers

import (
	"net/http"

	"gomosbridge/bridge"
)

// TransferIn accepts a relay event already verified by the calling light
// client.
func (a *API) TransferIn(w http.ResponseWriter, r *http.Request) {
	var ev bridge.VerifiedEvent
	if !a.decodeBody(w, r, &ev) {
		return
	}
	if ev.Payload.Amount == nil {
		badField(w, "payload.amount", "No amount provided")
		return
	}

	res, err := a.Bridge.ApplyTransferIn(r.Context(), CallerFrom(r.Context()), ev)
	if err != nil {
		a.responseError(w, r, err)
		return
	}
	responseOK(w, res)
}
