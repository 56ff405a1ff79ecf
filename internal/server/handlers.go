package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/powerdisco/internal/database"
	"github.com/nao1215/powerdisco/internal/discovery"
	"github.com/nao1215/powerdisco/internal/model"
	"github.com/nao1215/powerdisco/internal/protocol"
)

func (s *Server) status() StatusResponse {
	return StatusResponse{
		CampaignID:     s.campaigns.CampaignID(),
		CampaignStatus: s.campaigns.Status(),
	}
}

func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) startHandler(c *gin.Context) {
	var req model.DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown discovery type " + strconv.Quote(string(req.Kind))})
		return
	}

	if err := s.campaigns.Start(c.Request.Context(), req); err != nil {
		c.JSON(startErrorStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, s.status())
}

func startErrorStatus(err error) int {
	switch {
	case errors.Is(err, discovery.ErrConcurrency):
		return http.StatusConflict
	case errors.Is(err, discovery.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, discovery.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) stopHandler(c *gin.Context) {
	if err := s.campaigns.Stop(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) resultsHandler(c *gin.Context) {
	results := s.campaigns.Results()
	if results == nil {
		results = []model.HostResult{}
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) protocolsHandler(c *gin.Context) {
	var req ProtocolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	candidates, err := s.prober.Probe(c.Request.Context(), req.Address, req.Protocols)
	switch {
	case errors.Is(err, protocol.ErrHostUnavailable):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ProtocolsResponse{Address: req.Address, Candidates: candidates})
}

func (s *Server) assetsHandler(c *gin.Context) {
	if s.assets == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "asset registry is not readable"})
		return
	}

	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	filter := database.AssetFilter{
		Subtype: c.Query("subtype"),
		Parent:  c.Query("parent"),
		Limit:   limit,
	}

	assets, err := s.assets.ListAssets(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list assets", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list assets"})
		return
	}
	if assets == nil {
		assets = []model.Asset{}
	}
	c.JSON(http.StatusOK, assets)
}

func (s *Server) campaignsHandler(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "campaign history is not available"})
		return
	}

	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	records, err := s.history.ListCampaigns(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list campaigns"})
		return
	}
	if records == nil {
		records = []model.CampaignRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// queryLimit parses the optional limit query parameter. It writes a 400
// response and returns false for invalid values.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}
