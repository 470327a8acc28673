package workers

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"gomosbridge/config"
	"gomosbridge/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the bridge API. Bearer keys map to caller accounts.
func NewRouter(api *handlers.API, keys map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(api.Logger))
	r.Use(handlers.Authenticate(keys))

	r.Options("/*", CORSHeaders)

	r.Get("/health", api.HealthCheck)
	r.Get("/state", api.State)

	r.Post("/notify", api.Notify)
	r.Post("/transfer_in", api.TransferIn)

	r.Get("/chains/{chain}/type", api.ChainType)
	r.Get("/tokens/{token}", api.GetToken)
	r.Get("/tokens/{token}/chains/{chain}", api.RouteSupported)
	r.Get("/accounts/{account}/amount_out", api.AmountOut)
	r.Get("/accounts/{account}/lost_found", api.LostFound)

	r.Get("/events", api.GetEvents)
	r.Get("/events/used/{fingerprint}", api.EventUsed)
	r.Get("/dispatches/stats", api.DispatchStats)
	r.Get("/dispatches/{id}", api.GetDispatch)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/owner", api.SetOwner)
		r.Post("/light_client", api.SetLightClient)
		r.Post("/relay_address", api.SetRelayAddress)
		r.Post("/local_chain_id", api.SetLocalChainID)
		r.Post("/relay_chain_id", api.SetRelayChainID)
		r.Post("/chain_type", api.SetChainType)
		r.Post("/paused", api.SetPaused)
		r.Post("/upgrade", api.RequestUpgrade)

		r.Post("/tokens", api.RegisterToken)
		r.Put("/tokens/{token}/chains/{chain}", api.AddTokenToChain)
		r.Delete("/tokens/{token}/chains/{chain}", api.RemoveTokenToChain)
		r.Post("/tokens/{token}/decimals", api.SetTokenDecimals)
		r.Post("/tokens/{token}/min_balance", api.SetMinBalance)
		r.Post("/tokens/{token}/registered", api.SetTokenRegistered)

		r.Post("/amount_out/{account}/take", api.TakeAmountOut)
		r.Post("/lost_found/release", api.ReleaseLostFound)
	})

	return r
}

func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
				"request":  middleware.GetReqID(r.Context()),
			}).Debug("http request")
		})
	}
}

// Worker_HTTP serves the API until ctx is done.
func Worker_HTTP(ctx context.Context, handler http.Handler, logger *logrus.Logger) error {
	logger.Info("Starting HTTP service")

	var server *http.Server
	addr := config.Config.Server.Listen

	if config.Config.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		if err != nil {
			return err
		}
		if addr == "" {
			addr = ":443"
		}
		server = &http.Server{
			Addr:    addr,
			Handler: handler,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	} else {
		if addr == "" {
			addr = ":8080"
		}
		server = &http.Server{
			Addr:    addr,
			Handler: handler,
		}
	}

	errc := make(chan error, 1)
	go func() {
		var err error
		if config.Config.Server.UseSSL {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()
	logger.WithField("addr", addr).Info("HTTP service started")

	select {
	case err, ok := <-errc:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("HTTP service stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP service shutdown normal")
	return nil
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
