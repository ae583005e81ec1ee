package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scalp-core/internal/engine"
	"scalp-core/internal/events"
	"scalp-core/internal/gates"
	"scalp-core/internal/ledger"
	"scalp-core/internal/monitor"
	"scalp-core/internal/options"
)

// Server exposes the read-only dashboard surface: position and signal
// snapshots, last prices, chain windows, and system metrics. Nothing here
// mutates core state.
type Server struct {
	Router   *gin.Engine
	Core     *engine.Core
	Ledger   *ledger.Ledger
	Gates    *gates.Engine
	Resolver *options.Resolver
	Metrics  *monitor.SystemMetrics
	Bus      *events.Bus
	Meta     SystemMeta
}

// SystemMeta describes runtime status exposed to the UI.
type SystemMeta struct {
	Symbols []string
	FeedURL string
	Version string
}

func NewServer(core *engine.Core, led *ledger.Ledger, gateEngine *gates.Engine,
	resolver *options.Resolver, metrics *monitor.SystemMetrics, bus *events.Bus, meta SystemMeta) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RateLimitMiddleware())
	r.Use(CORSMiddleware())

	s := &Server{
		Router:   r,
		Core:     core,
		Ledger:   led,
		Gates:    gateEngine,
		Resolver: resolver,
		Metrics:  metrics,
		Bus:      bus,
		Meta:     meta,
	}

	r.GET("/health", s.health)
	r.GET("/ws", s.websocket)

	api := r.Group("/api")
	{
		api.GET("/positions", s.openPositions)
		api.GET("/positions/closed", s.closedPositions)
		api.GET("/signals", s.activeSignals)
		api.GET("/ltp", s.ltp)
		api.GET("/chain", s.chainWindow)
		api.GET("/breadth", s.breadth)
		api.GET("/metrics", s.metrics)
		api.GET("/status", s.status)
	}

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) openPositions(c *gin.Context) {
	positions := s.Ledger.OpenPositions()
	out := make([]gin.H, 0, len(positions))
	for _, p := range positions {
		ltp := s.Ledger.Ltp(p.Instrument)
		out = append(out, gin.H{
			"id":             p.ID,
			"instrument":     p.Instrument,
			"quantity":       p.Quantity,
			"initial_qty":    p.InitialQuantity,
			"side":           p.Side.String(),
			"entry_price":    p.EntryPrice,
			"entry_time":     p.EntryTime,
			"stop_loss":      p.StopLoss,
			"take_profit":    p.TakeProfit,
			"strategy":       p.Strategy,
			"realized_pnl":   p.RealizedPnL,
			"unrealized_pnl": p.UnrealizedPnL(ltp),
			"ltp":            ltp,
			"break_even":     s.Ledger.IsBreakEven(p.Instrument),
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out, "count": len(out)})
}

func (s *Server) closedPositions(c *gin.Context) {
	positions := s.Ledger.ClosedPositions()
	var total float64
	out := make([]gin.H, 0, len(positions))
	for _, p := range positions {
		total += p.RealizedPnL
		out = append(out, gin.H{
			"id":           p.ID,
			"instrument":   p.Instrument,
			"initial_qty":  p.InitialQuantity,
			"side":         p.Side.String(),
			"entry_price":  p.EntryPrice,
			"entry_time":   p.EntryTime,
			"exit_price":   p.ExitPrice,
			"exit_time":    p.ExitTime,
			"exit_reason":  p.ExitReason,
			"strategy":     p.Strategy,
			"realized_pnl": p.RealizedPnL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out, "count": len(out), "total_pnl": total})
}

func (s *Server) activeSignals(c *gin.Context) {
	signals := s.Gates.ActiveSignals()
	out := make(map[string]gin.H, len(signals))
	for instrument, sig := range signals {
		status, reason := sig.Status()
		out[instrument] = gin.H{
			"underlying": sig.Underlying,
			"gate":       sig.GateName,
			"created_at": sig.CreatedAt,
			"entry":      sig.Entry,
			"stop":       sig.Stop,
			"target":     sig.Target,
			"score":      sig.Score,
			"oi_scale":   sig.OIScale,
			"status":     status.String(),
			"reason":     reason,
		}
	}
	c.JSON(http.StatusOK, gin.H{"signals": out, "count": len(out)})
}

func (s *Server) ltp(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter required"})
		return
	}
	price := s.Ledger.Ltp(symbol)
	if price == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price for symbol", "symbol": symbol})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "ltp": price})
}

func (s *Server) chainWindow(c *gin.Context) {
	index := c.Query("index")
	if index == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index query parameter required"})
		return
	}
	spot, ok := s.Resolver.Spot(index)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no spot for index", "index": index})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index": index,
		"spot":  spot,
		"chain": s.Resolver.ChainWindow(index),
	})
}

func (s *Server) breadth(c *gin.Context) {
	snap := s.Core.Breadth()
	c.JSON(http.StatusOK, gin.H{
		"advances":       snap.Advances,
		"declines":       snap.Declines,
		"unchanged":      snap.Unchanged,
		"total":          snap.Total,
		"ratio":          snap.Ratio(),
		"weighted_delta": s.Core.WeightedDelta(),
	})
}

func (s *Server) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":          s.Meta.Version,
		"symbols":          s.Meta.Symbols,
		"feed_url":         s.Meta.FeedURL,
		"open_positions":   len(s.Ledger.OpenPositions()),
		"closed_positions": len(s.Ledger.ClosedPositions()),
	})
}
