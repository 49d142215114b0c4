package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yamdb/auth"
	"yamdb/config"
	"yamdb/controllers"
	"yamdb/database"
	grpcserver "yamdb/grpc_server"
	"yamdb/mail"
	"yamdb/registry"
	"yamdb/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	Long: `Run the REST API on http_port and the gRPC API on grpc_port until
SIGINT or SIGTERM. The database is migrated on startup. With consul.enabled
both endpoints are registered with the local Consul agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, config.AppConfig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg config.Config) error {
	database.InitDB(logger)

	policies, err := auth.NewPolicies(cfg.Permissions)
	if err != nil {
		return err
	}
	mailer, err := mail.NewSender(cfg.Mail, logger)
	if err != nil {
		return err
	}

	var reg registry.ServiceRegistry
	if cfg.Consul.Enabled {
		reg, err = registry.NewConsulRegistry(cfg.Consul.Address, logger.Sugar())
		if err != nil {
			// The API works without discovery.
			logger.Warn("Consul unavailable, continuing without registration", zap.Error(err))
			reg = nil
		}
	}

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: controllers.NewContainer(controllers.Deps{
			DB:       database.DB,
			Mailer:   mailer,
			Policies: policies,
			Auth:     services.AuthOptions{From: cfg.Mail.From, ConfirmationTTL: cfg.Auth.ConfirmationTTL},
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := grpcserver.NewServer(grpcserver.Deps{
		DB:       database.DB,
		Policies: policies,
		Registry: reg,
		Logger:   logger,
	})
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", cfg.GRPCPort, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	if reg != nil {
		instances := []registry.Instance{
			registry.HTTPInstance(cfg.ServiceName, cfg.Consul.AdvertiseHost, cfg.HTTPPort),
			registry.GRPCInstance(cfg.ServiceName, cfg.Consul.AdvertiseHost, cfg.GRPCPort),
		}
		for _, inst := range instances {
			if err := reg.Register(inst); err != nil {
				continue
			}
			defer func(id string) { _ = reg.Deregister(id) }(inst.ID)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-errCh:
		logger.Error("Server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("HTTP shutdown failed", zap.Error(shutdownErr))
	}
	grpcServer.GracefulStop()
	return err
}
