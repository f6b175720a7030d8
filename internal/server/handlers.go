package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"fanin/internal/aggregate"
	"fanin/internal/engine"
	"fanin/internal/service"
)

var errRateLimited = errors.New("too many requests")

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, service.ErrorEnvelope{
		Error: service.APIError{
			Message: msg,
			Code:    code,
		},
	})
}

type policyView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SharedInput bool   `json:"shared_input"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "services": s.engine.Services.Len()})
}

func (s *Server) listPolicies(c *gin.Context) {
	all := aggregate.List()
	out := make([]policyView, 0, len(all))
	for _, p := range all {
		out = append(out, policyView{ID: p.ID(), Title: p.Title(), Description: p.Description(), SharedInput: p.SharedInput()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": s.engine.Services.IDs()})
}

// retrieve exposes one hosted service to http services in other processes.
// A service failure is 502 retrieve_failed so remote callers do not retry it.
func (s *Server) retrieve(c *gin.Context) {
	id := c.Param("id")
	svc, ok := s.engine.Services.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, service.CodeServiceNotFound, fmt.Errorf("%w: %s", service.ErrServiceNotFound, id))
		return
	}

	ctx := c.Request.Context()
	if s.engine.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.engine.Timeout)
		defer cancel()
	}

	input := c.Query("input")
	value, err := svc.Retrieve(ctx, input).Await(ctx)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, service.RetrieveResponse{Service: id, Input: input, Value: value})
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		respondError(c, http.StatusGatewayTimeout, service.CodeTimeout, err)
	default:
		respondError(c, http.StatusBadGateway, service.CodeRetrieveFailed, err)
	}
}

// runAggregate runs one policy. Resolved and rejected aggregations are both 200;
// the record's status tells them apart.
func (s *Server) runAggregate(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, service.CodeBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	rec, err := s.engine.Execute(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrServiceNotFound):
		respondError(c, http.StatusNotFound, service.CodeServiceNotFound, err)
		return
	case err != nil:
		respondError(c, http.StatusBadRequest, service.CodeBadRequest, err)
		return
	}

	if id := c.GetString(ctxRequestID); id != "" {
		rec.RunID = id
	}
	c.JSON(http.StatusOK, rec)
}
