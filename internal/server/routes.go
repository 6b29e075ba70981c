package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/danmuck/dectctl/internal/cluster"
	"github.com/danmuck/dectctl/internal/dlc"
	"github.com/danmuck/dectctl/internal/identity"
	"github.com/danmuck/dectctl/internal/mac"
	"github.com/danmuck/dectctl/internal/protocol/tail"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type receiveRequest struct {
	Words []string `json:"words" binding:"required"`
}

// connectRequest names the portable side of a new connection; the fixed
// side is the cluster's PARI.
type connectRequest struct {
	PMID identity.PMID `json:"pmid"`
	LCN  uint8         `json:"lcn"`
}

type receiveResult struct {
	Word  string     `json:"word"`
	Tail  *tail.Tail `json:"tail,omitempty"`
	Error string     `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": "0.1.0",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/clusters", func(c *gin.Context) {
		out := make([]gin.H, 0)
		for _, cl := range s.runtime.Clusters() {
			out = append(out, gin.H{
				"name":     cl.Name(),
				"instance": cl.ID().String(),
				"role":     cl.Role().String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"clusters": out})
	})

	s.router.GET("/clusters/:name", func(c *gin.Context) {
		cl, ok := s.cluster(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		snap, err := cl.Snapshot(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		conns, err := cl.Connections(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		stats, err := cl.Stats(ctx)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":        cl.Name(),
			"role":        cl.Role().String(),
			"sysinfo":     snap,
			"saris":       snap.SARIList(),
			"connections": conns,
			"stats":       stats,
		})
	})

	s.router.POST("/clusters/:name/receive", func(c *gin.Context) {
		cl, ok := s.cluster(c)
		if !ok {
			return
		}
		var req receiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !s.limiter.AllowN(time.Now(), len(req.Words)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "receive rate exceeded"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		results := make([]receiveResult, 0, len(req.Words))
		for _, raw := range req.Words {
			res := receiveResult{Word: raw}
			w, err := tail.ParseWord(raw)
			if err == nil {
				var t tail.Tail
				t, err = cl.Receive(ctx, w)
				if err == nil {
					res.Tail = &t
				}
			}
			if errors.Is(err, cluster.ErrStopped) || errors.Is(err, context.DeadlineExceeded) {
				s.fail(c, err)
				return
			}
			if err != nil {
				res.Error = err.Error()
			}
			results = append(results, res)
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	})

	conns := s.router.Group("/clusters/:name/connections")
	conns.POST("", s.establish)
	conns.POST("/:mcei/confirm", s.confirm)
	conns.DELETE("/:mcei", s.close)
}

func (s *Server) establish(c *gin.Context) {
	cl, ok := s.cluster(c)
	if !ok {
		return
	}
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mci := identity.MCI{ARI: cl.PARI(), PMID: req.PMID, LCN: req.LCN}
	if err := mci.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	info, err := cl.Establish(ctx, mci, mac.DefaultParams())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) confirm(c *gin.Context) {
	cl, mcei, ok := s.connection(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	info, err := cl.Confirm(ctx, mcei)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) close(c *gin.Context) {
	cl, mcei, ok := s.connection(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := cl.Close(ctx, mcei); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) connection(c *gin.Context) (*cluster.Cluster, uint32, bool) {
	cl, ok := s.cluster(c)
	if !ok {
		return nil, 0, false
	}
	mcei, err := strconv.ParseUint(c.Param("mcei"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mcei"})
		return nil, 0, false
	}
	return cl, uint32(mcei), true
}

func (s *Server) cluster(c *gin.Context) (*cluster.Cluster, bool) {
	cl, ok := s.runtime.Cluster(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "cluster not found"})
		return nil, false
	}
	return cl, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dlc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dlc.ErrDuplicateMCI), errors.Is(err, dlc.ErrStateViolation):
		return http.StatusConflict
	case errors.Is(err, dlc.ErrExhausted), errors.Is(err, cluster.ErrStopped),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	s.log.Warn().Err(err).Str("path", c.FullPath()).Msg("status request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
