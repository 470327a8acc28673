package handlers

import (
	"net/http"
)

func (a *API) State(w http.ResponseWriter, r *http.Request) {
	settings := a.Bridge.Settings()
	responseJSON(w, &APIStateResponse{
		Status:      "ok",
		Initialized: a.Bridge.Initialized(),
		Settings:    settings,
		Paused:      settings.Paused.Names(),
	}, http.StatusOK)
}
