package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/factory"
	"vsgifts-api/internal/handler"
	"vsgifts-api/internal/util"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize factory (which loads config and initializes all clients)
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()
	router := setupRouter(f)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	servers := buildServers(f, cfg, router)
	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func() {
			errCh <- s.run()
		}()
	}

	util.Info("Server started successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.String("address", servers[0].srv.Addr),
	)

	select {
	case <-ctx.Done():
		util.Info("Received shutdown signal")
	case err := <-errCh:
		util.Error("Server stopped unexpectedly", util.ErrorField(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
		}
	}
	util.Info("Server shutdown completed")
}

// setupRouter creates the HTTP router with all handlers using Chi
func setupRouter(f *factory.Factory) http.Handler {
	logger := util.Get()
	services := f.ServiceFactory()
	accounts := services.AccountService()

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(accounts, logger),
		Users:         handler.NewUserHandler(services.ProfileService(), logger),
		Products:      handler.NewProductHandler(services.CatalogService(), logger),
		Authenticator: accounts,
		Health:        f,
	}
	if cache := f.RateLimitCache(); cache != nil {
		deps.Limiter = cache
	}
	return handler.NewRouter(f.Config(), deps, logger)
}

type server struct {
	srv *http.Server
	tls bool
}

func (s server) run() error {
	var err error
	if s.tls {
		// Certificates come from TLSConfig.GetCertificate.
		err = s.srv.ListenAndServeTLS("", "")
	} else {
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// buildServers returns the API server first. Production AutoCert adds a
// port 80 listener for ACME challenges and HTTPS redirects.
func buildServers(f *factory.Factory, cfg *config.Config, router http.Handler) []server {
	api := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("Starting HTTP server - TLS is disabled",
			util.String("environment", cfg.Environment),
			util.Int("port", cfg.Server.Port),
		)
		return []server{{srv: api}}
	}

	tlsManager := f.TLSManager()
	api.TLSConfig = tlsManager.GetTLSConfig()
	api.Addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.TLSPort)

	servers := []server{{srv: api, tls: true}}

	if cfg.IsProduction() && cfg.Server.AutoCert {
		autoCertManager := tlsManager.GetAutocertManager()
		if autoCertManager == nil {
			util.Fatal("AutoCert manager is not available in production")
		}
		api.Addr = ":443"
		servers = append(servers, server{srv: &http.Server{
			Addr:              ":80",
			Handler:           autoCertManager.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}})
		util.Info("AutoCert enabled", util.String("domain", cfg.Server.Domain))
	}

	util.Info("Starting HTTPS server",
		util.String("environment", cfg.Environment),
		util.String("address", api.Addr),
		util.Bool("auto_cert", cfg.Server.AutoCert),
	)
	return servers
}
