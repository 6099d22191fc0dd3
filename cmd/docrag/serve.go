package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viant/mcp-protocol/schema"
	mcpsrv "github.com/viant/mcp/server"
	"golang.org/x/sync/errgroup"

	dmcp "github.com/viant/docrag/mcp"
	"github.com/viant/docrag/server"
	"github.com/viant/docrag/service"
)

func serveCmd(args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flags.String("config", "", "config yaml (optional, defaults to ~/docrag/config.yaml if present)")
	addr := flags.String("addr", "", "HTTP API address (default from config or :8080)")
	mcpAddr := flags.String("mcp-addr", "", "MCP server address (default from config, disabled when empty)")
	metricsLog := flags.Bool("metrics-log", false, "log mcp metric lines")
	flags.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := service.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	svc, err := newService(ctx, cfg)
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	defer func() { _ = svc.Close() }()

	servers := []*http.Server{server.New(svc).HTTP(cfg.Server.Addr)}
	if mcpAddrVal := resolveMCPAddr(*mcpAddr, cfg); mcpAddrVal != "" {
		mcpServer, err := newMCPServer(ctx, svc, mcpAddrVal, *metricsLog)
		if err != nil {
			log.Fatalf("mcp init: %v", err)
		}
		servers = append(servers, mcpServer)
	}

	group := &errgroup.Group{}
	for _, srv := range servers {
		log.Printf("docrag listening on %s", srv.Addr)
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	cancel()
	log.Printf("shutdown signal received: %v", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	for _, srv := range servers {
		if err := srv.Shutdown(ctxShutdown); err != nil {
			log.Printf("http shutdown error: addr=%s err=%v", srv.Addr, err)
		}
	}
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Printf("docrag stopped")
}

func newMCPServer(ctx context.Context, svc *service.Service, addr string, metricsLog bool) (*http.Server, error) {
	srv, err := mcpsrv.New(
		mcpsrv.WithImplementation(schema.Implementation{Name: "docrag-mcp", Version: version}),
		mcpsrv.WithNewHandler(dmcp.NewHandler(svc, metricsLog)),
		mcpsrv.WithEndpointAddress(addr),
		mcpsrv.WithRootRedirect(true),
		mcpsrv.WithStreamableURI("/mcp"),
	)
	if err != nil {
		return nil, err
	}
	srv.UseStreamableHTTP(true)
	httpServer := srv.HTTP(ctx, addr)
	httpServer.ReadHeaderTimeout = 10 * time.Second
	httpServer.ReadTimeout = 60 * time.Second
	httpServer.WriteTimeout = 5 * time.Minute
	httpServer.IdleTimeout = 120 * time.Second
	return httpServer, nil
}

func resolveMCPAddr(flagAddr string, cfg *service.Config) string {
	if flagAddr != "" {
		return flagAddr
	}
	if cfg == nil || !cfg.MCPServer.Enabled() {
		return ""
	}
	if cfg.MCPServer.Addr != "" {
		return cfg.MCPServer.Addr
	}
	return fmt.Sprintf("127.0.0.1:%d", cfg.MCPServer.Port)
}
