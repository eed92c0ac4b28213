package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agenthands/symbiosis/internal/core"
	"github.com/agenthands/symbiosis/internal/core/model"
)

// Companion is the part of core.Companion the HTTP API drives.
type Companion interface {
	Submit(ctx context.Context, text string) (*core.Outcome, error)
	State() core.State
	History() []model.ChatTurn
}

type Server struct {
	Companion Companion
	Hub       *Hub
	Logger    *zap.Logger

	upgrader websocket.Upgrader
}

func NewServer(companion Companion, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Companion: companion,
		Hub:       hub,
		Logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The page is usually served from a different origin (file:// or a
			// static host).
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.Logger))

	r.POST("/input", s.Input)
	r.GET("/state", s.State)
	r.GET("/history", s.History)
	r.GET("/moods", s.Moods)
	r.POST("/signals", s.Signals)
	r.GET("/ws", s.WebSocket)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.Hub != nil {
		s.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type InputRequest struct {
	Text string `json:"text"`
}

func (s *Server) Input(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	out, err := s.Companion.Submit(c.Request.Context(), req.Text)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, out)
	case errors.Is(err, core.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrTurnInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrTurnFailed):
		s.Logger.Warn("turn failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "turn failed", "reply": core.PhraseFailure})
	default:
		s.Logger.Error("failed to handle input", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process input"})
	}
}

func (s *Server) State(c *gin.Context) {
	c.JSON(http.StatusOK, s.Companion.State())
}

func (s *Server) History(c *gin.Context) {
	turns := s.Companion.History()
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	c.JSON(http.StatusOK, gin.H{"history": turns})
}

type MoodInfo struct {
	Mood    model.Mood         `json:"mood"`
	Audio   model.AudioProfile `json:"audio"`
	Palette model.Palette      `json:"palette"`
}

func (s *Server) Moods(c *gin.Context) {
	moods := make([]MoodInfo, 0, len(model.Moods))
	for _, m := range model.Moods {
		moods = append(moods, MoodInfo{Mood: m, Audio: m.Audio(), Palette: m.Palette()})
	}
	c.JSON(http.StatusOK, gin.H{"moods": moods})
}

func (s *Server) Signals(c *gin.Context) {
	var req Signals
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if s.Hub != nil {
		s.Hub.SetSignals(req)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) WebSocket(c *gin.Context) {
	if s.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "websocket disabled"})
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := s.Hub.Serve(conn)

	// Late joiners get the current state straight away.
	st := s.Companion.State()
	s.Hub.sendTo(client, Event{Type: EventState, State: &st})
}
