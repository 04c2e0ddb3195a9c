package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/handlers"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/mcp"
	"github.com/milkyway-analytics/milkyway/pkg/middleware"
	"github.com/milkyway-analytics/milkyway/ui"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI, HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			client := a.chatClient()
			handler, err := a.httpHandler(client, opts.version)
			if err != nil {
				return err
			}
			return a.listen(ctx, handler, client != nil)
		},
	}
}

// httpHandler wires every route onto one mux.
func (a *app) httpHandler(client llm.ChatClient, version string) (http.Handler, error) {
	mux := http.NewServeMux()
	previewLimit := a.cfg.Warehouse.PreviewLimit

	handlers.NewHealthHandler(a.cfg, a.warehouse, a.logger).RegisterRoutes(mux)
	handlers.NewPatternsHandler(a.factory, a.cfg.Warehouse.Type, a.logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(a.schema, previewLimit, a.logger).RegisterRoutes(mux)
	handlers.NewPipelineHandler(a.schema, a.bridge, previewLimit, a.logger).RegisterRoutes(mux)

	chat, err := handlers.NewChatHandler(handlers.ChatHandlerConfig{
		Sessions:   agent.NewSessionManager(a.orchestratorFactory(client), agent.DefaultSessionIdleTimeout),
		Memory:     a.memory,
		CookieName: a.cfg.Session.CookieName,
		Secret:     []byte(a.cfg.Session.Secret),
		MaxAge:     agent.DefaultSessionIdleTimeout,
		Secure:     a.cfg.Server.TLSCertPath != "",
	}, a.logger)
	if err != nil {
		return nil, err
	}
	chat.RegisterRoutes(mux)

	mcpServer, err := mcp.NewServer("milkyway", version, agent.NewToolExecutor(a.schema, a.memory, a.logger), a.logger)
	if err != nil {
		return nil, err
	}
	mcpHandler := mcpServer.Handler()
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		mux.Handle(method+" /mcp", mcpHandler)
	}

	handlers.NewUIHandler(ui.DistFS(), a.logger).RegisterRoutes(mux)

	return middleware.RequestLogger(a.logger)(mux), nil
}

func (a *app) listen(ctx context.Context, handler http.Handler, llmEnabled bool) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	useTLS := a.cfg.Server.TLSCertPath != ""

	errCh := make(chan error, 1)
	go func() {
		if useTLS {
			errCh <- srv.ListenAndServeTLS(a.cfg.Server.TLSCertPath, a.cfg.Server.TLSKeyPath)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	a.logger.Info("Starting milkyway",
		zap.String("url", fmt.Sprintf("%s://%s", scheme, srv.Addr)),
		zap.String("version", a.cfg.Version),
		zap.String("warehouse", a.cfg.Warehouse.Type),
		zap.Bool("llm_enabled", llmEnabled))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
