package mcp

import (
	"context"
	"log"

	"github.com/viant/jsonrpc/transport"
	protoclient "github.com/viant/mcp-protocol/client"
	"github.com/viant/mcp-protocol/logger"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/viant/docrag/retriever"
	"github.com/viant/docrag/service"
)

// Service is the subset of service.Service exposed as MCP tools.
type Service interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
	Retrieve(ctx context.Context, question string, k int) (*retriever.Result, error)
	Rechunk(ctx context.Context, req *service.RechunkRequest) (*service.RechunkResult, error)
}

type Handler struct {
	*protoserver.DefaultHandler
	service    Service
	metricsLog bool
	logf       func(format string, args ...any)
}

func NewHandler(svc Service, metricsLog bool) protoserver.NewHandler {
	return func(_ context.Context, notifier transport.Notifier, logger logger.Logger, clientOperation protoclient.Operations) (protoserver.Handler, error) {
		base := protoserver.NewDefaultHandler(notifier, logger, clientOperation)
		h := newHandler(svc, metricsLog)
		h.DefaultHandler = base
		if err := registerTools(base.Registry, h); err != nil {
			return nil, err
		}
		return h, nil
	}
}

func newHandler(svc Service, metricsLog bool) *Handler {
	return &Handler{service: svc, metricsLog: metricsLog, logf: log.Printf}
}
