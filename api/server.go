package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	aistm7 "github.com/barkalona/AISTM7"
	"github.com/barkalona/AISTM7/core"
)

type (
	// Pinger is what the health endpoint needs from the storage layer.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// EventLister exposes the audit trail read side.
	EventLister interface {
		ListEvents(ctx context.Context, limit int) ([]*core.RequirementUpdatedEvent, error)
	}

	Server struct {
		svc    *aistm7.Service
		pinger Pinger
		events EventLister
		log    core.Log

		feedId string
	}

	initializeRequest struct {
		InitialSupply uint64 `json:"initialSupply"`
	}

	verifyResponse struct {
		Holder      string `json:"holder"`
		Requirement uint64 `json:"requirement"`
		Balance     bool   `json:"meetsRequirement"`
	}
)

func NewServer(svc *aistm7.Service, pinger Pinger, events EventLister, feedId string, log core.Log) *Server {
	return &Server{
		svc:    svc,
		pinger: pinger,
		events: events,
		log:    log,
		feedId: feedId,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/requirement", s.getRequirement)
	router.GET("/requirement/events", s.listEvents)
	router.POST("/requirement/update", s.updateRequirement)
	router.POST("/initialize", s.initialize)
	router.GET("/balance/:holder/verify", s.verifyBalance)

	return router
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	if err := s.pinger.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getRequirement(c *gin.Context) {
	state, err := s.svc.GetRequirement(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) listEvents(c *gin.Context) {
	limit := 50
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	events, err := s.events.ListEvents(c.Request.Context(), limit)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) updateRequirement(c *gin.Context) {
	caller, ok := s.callerAuthority(c)
	if !ok {
		return
	}

	state, changed, err := s.svc.UpdateRequirement(c.Request.Context(), caller, s.feedId)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state, "changed": changed})
}

func (s *Server) initialize(c *gin.Context) {
	caller, ok := s.callerAuthority(c)
	if !ok {
		return
	}

	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := s.svc.Initialize(c.Request.Context(), caller, req.InitialSupply)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (s *Server) verifyBalance(c *gin.Context) {
	holder, err := uuid.FromString(c.Param("holder"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid holder id"})
		return
	}

	ok, err := s.svc.VerifyBalance(c.Request.Context(), holder)
	if err != nil {
		s.renderError(c, err)
		return
	}

	state, err := s.svc.GetRequirement(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Holder:      holder.String(),
		Requirement: state.CurrentRequirement,
		Balance:     ok,
	})
}

func (s *Server) callerAuthority(c *gin.Context) (uuid.UUID, bool) {
	caller, err := uuid.FromString(c.GetHeader("X-Authority"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-Authority header"})
		return uuid.Nil, false
	}
	return caller, true
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.AlreadyInitialized):
		status = http.StatusConflict
	case errors.Is(err, core.StateNotFound), errors.Is(err, core.TokenAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.Unauthorized):
		status = http.StatusForbidden
	case errors.Is(err, core.NoPriceFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.AssetMismatch):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
