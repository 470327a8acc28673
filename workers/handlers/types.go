package handlers

import (
	"context"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/sirupsen/logrus"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type APIResultResponse struct {
	Status string      `json:"status"`
	Result interface{} `json:"result"`
}

type APIStateResponse struct {
	Status      string          `json:"status"`
	Initialized bool            `json:"initialized"`
	Settings    bridge.Settings `json:"settings"`
	Paused      []string        `json:"paused"`
}

// Ledger is the read side of the store: event log and dispatch outbox.
type Ledger interface {
	Events(ctx context.Context, offset, limit int) ([]types.Envelope, error)
	GetDispatch(ctx context.Context, id string) (*types.Dispatch, error)
	DispatchCounts(ctx context.Context) (map[string]int, error)
}

// API serves the bridge over HTTP. Callers are identified by the
// authentication middleware, see WithCaller.
type API struct {
	Bridge *bridge.Service
	Ledger Ledger
	Logger *logrus.Logger
	// Ping checks the backing store, nil skips the check
	Ping func(ctx context.Context) error
}
