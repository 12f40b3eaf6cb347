package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hazyhaar/agriquery/pkg/answer"
	"github.com/hazyhaar/agriquery/pkg/kit"
	"github.com/hazyhaar/agriquery/pkg/region"
	"github.com/hazyhaar/agriquery/pkg/source"
)

// MaxQuestionLen bounds the accepted question length in bytes.
const MaxQuestionLen = 1024

var (
	errEmptyQuestion = errors.New("question is empty")
	errLongQuestion  = errors.New("question too long (max 1024 bytes)")
)

// Service is what both transports serve.
type Service struct {
	Engine  *answer.Engine
	Acquire answer.AcquireFunc
	Sources *source.DB // optional; reported by health
	Logger  *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Shared request/response types used by both HTTP and MCP transports.

type askReq struct {
	Question string
}

type regionsResponse struct {
	Regions []region.Region `json:"regions"`
}

func askEndpoint(s *Service) kit.Endpoint {
	ep := func(ctx context.Context, request any) (any, error) {
		req := request.(*askReq)
		q := strings.TrimSpace(req.Question)
		if q == "" {
			return nil, errEmptyQuestion
		}
		if len(q) > MaxQuestionLen {
			return nil, errLongQuestion
		}
		return s.Engine.Respond(ctx, s.Acquire, q), nil
	}
	return kit.Chain(kit.RequestID(), kit.Logging(s.logger(), "ask"))(ep)
}

func listRegionsEndpoint(s *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return regionsResponse{Regions: s.Engine.Registry().List()}, nil
	}
}
