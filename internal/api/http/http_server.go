package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/olyamironova/trade-execution/internal/api/dto"
	"github.com/olyamironova/trade-execution/internal/core"
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/middleware"
	"github.com/olyamironova/trade-execution/internal/port"
)

type submitter interface {
	Submit(ctx context.Context, req core.ExecutionRequest) (*core.ExecutionResult, error)
}

// LatestReader serves the last announced trade of a market.
type LatestReader interface {
	LatestTrade(ctx context.Context, market string) (*domain.TradePayload, error)
}

type HTTPServer struct {
	exec   submitter
	repo   port.Repository
	latest LatestReader
	logger *zap.Logger
}

// NewHTTPServer wires the intake to exec and the read routes to repo. latest
// may be nil, in which case /v1/markets/:id/latest answers 404.
func NewHTTPServer(exec submitter, repo port.Repository, latest LatestReader, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{exec: exec, repo: repo, latest: latest, logger: logger.Named("http")}
}

func (s *HTTPServer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/v1")
	v1.GET("/trades/:id", s.getTrade)
	v1.GET("/orders/:id", s.getOrder)
	v1.GET("/markets/:id/latest", s.getLatest)
	v1.POST("/executions", middleware.RequireMatcher(), s.execute)

	return r
}

func (s *HTTPServer) execute(c *gin.Context) {
	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	cr, err := req.ToCore()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	res, err := s.exec.Submit(c.Request.Context(), cr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromResult(res))
}

func (s *HTTPServer) getTrade(c *gin.Context) {
	t, err := s.repo.LoadTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTrade(t))
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	o, err := s.repo.LoadOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOrder(o))
}

func (s *HTTPServer) getLatest(c *gin.Context) {
	if s.latest == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "latest trade cache disabled", Kind: "not_found"})
		return
	}
	p, err := s.latest.LatestTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no recent trade", Kind: "not_found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	var (
		te *domain.TradeExecutionError
		ae *domain.AccountError
	)
	switch {
	case errors.As(err, &te):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Kind: "trade_execution"})
	case errors.As(err, &ae):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error(), Kind: "account"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, core.ErrDispatcherClosed):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error(), Kind: "unavailable"})
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Kind: "internal"})
	}
}
