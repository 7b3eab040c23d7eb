// Package relay is the message channel between the tracker and receivers.
//
// A Hub fans payloads out to websocket subscribers of a named channel and
// remembers the last payload per channel. It serves:
//
//	GET  /healthz
//	GET  /api/channels/:channel   last payload, 404 if none
//	POST /api/channels/:channel   publish a JSON payload
//	GET  /ws/:channel             websocket subscription
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/leapservo/pkg/servo"
)

const (
	sendQueue  = 16
	writeWait  = time.Second
	pingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Receivers and dashboards run on other hosts
	},
}

type subscriber struct {
	id      uuid.UUID
	channel string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub is an in-process publisher served over HTTP.
type Hub struct {
	engine *gin.Engine
	logger logrus.FieldLogger
	start  time.Time

	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	last    map[string]servo.Payload
	dropped uint64
}

// NewHub creates a hub with its routes registered.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	gin.SetMode(gin.ReleaseMode)

	h := &Hub{
		engine: gin.New(),
		logger: logger,
		start:  time.Now(),
		subs:   make(map[string]map[*subscriber]struct{}),
		last:   make(map[string]servo.Payload),
	}
	h.setupRoutes()
	return h
}

func (h *Hub) setupRoutes() {
	h.engine.Use(gin.Recovery())
	h.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	h.engine.GET("/healthz", h.handleHealth)
	h.engine.GET("/api/channels/:channel", h.handleLast)
	h.engine.POST("/api/channels/:channel", h.handlePublish)
	h.engine.GET("/ws/:channel", h.handleSubscribe)
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.WithField("addr", addr).Info("relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// Publish stores payload as the channel's last value and queues it for
// every subscriber. It never blocks on a slow subscriber; their queue
// overflows and the message is dropped for them.
func (h *Hub) Publish(_ context.Context, channel string, payload servo.Payload) error {
	if channel == "" {
		return fmt.Errorf("publish: empty channel")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("publish: encode payload: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[channel] = payload
	for sub := range h.subs[channel] {
		select {
		case sub.send <- data:
		default:
			h.dropped++
		}
	}
	return nil
}

// Last returns the most recent payload published on channel.
func (h *Hub) Last(channel string) (servo.Payload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.last[channel]
	return p, ok
}

// Subscribers returns the number of live subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

func (h *Hub) handleHealth(c *gin.Context) {
	h.mu.RLock()
	channels := make(map[string]int, len(h.subs))
	for name, subs := range h.subs {
		channels[name] = len(subs)
	}
	dropped := h.dropped
	h.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(h.start).Round(time.Second).String(),
		"channels": channels,
		"dropped":  dropped,
	})
}

func (h *Hub) handleLast(c *gin.Context) {
	p, ok := h.Last(c.Param("channel"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no message on channel"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Hub) handlePublish(c *gin.Context) {
	var p servo.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	if _, err := p.Commands(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Publish(c.Request.Context(), c.Param("channel"), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Hub) handleSubscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade")
		return
	}

	sub := &subscriber{
		id:      uuid.New(),
		channel: c.Param("channel"),
		conn:    conn,
		send:    make(chan []byte, sendQueue),
	}
	h.add(sub)
	log := h.logger.WithFields(logrus.Fields{"subscriber": sub.id, "channel": sub.channel})
	log.Info("subscriber connected")

	go h.writePump(sub)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(sub)
	log.Info("subscriber disconnected")
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer sub.conn.Close()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sub.channel] == nil {
		h.subs[sub.channel] = make(map[*subscriber]struct{})
	}
	h.subs[sub.channel][sub] = struct{}{}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.channel][sub]; !ok {
		return
	}
	delete(h.subs[sub.channel], sub)
	if len(h.subs[sub.channel]) == 0 {
		delete(h.subs, sub.channel)
	}
	close(sub.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channel, subs := range h.subs {
		for sub := range subs {
			close(sub.send)
		}
		delete(h.subs, channel)
	}
}
