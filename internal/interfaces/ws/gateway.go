// Package ws exposes the realtime websocket endpoints
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	appchat "github.com/highprosper/backend/internal/application/chat"
	appidentity "github.com/highprosper/backend/internal/application/identity"
	"github.com/highprosper/backend/internal/domain/chat"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/highprosper/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
)

// Gateway upgrades websocket connections, gates them on a bearer token, and
// joins each to its hub groups. Inbound chat frames become commands on the
// chat service's bus so the read loop never touches the database.
type Gateway struct {
	base     context.Context
	resolver *appidentity.Resolver
	hub      *realtime.Hub
	chat     *appchat.Service
	cfg      config.RealtimeConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewGateway creates the websocket gateway. ctx is the server's root context;
// chat enqueues block on a full command bus until it is cancelled, so
// shutdown unblocks every connected read loop.
func NewGateway(ctx context.Context, resolver *appidentity.Resolver, hub *realtime.Hub, chatSvc *appchat.Service, cfg config.RealtimeConfig, logger *zap.Logger) *Gateway {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Gateway{
		base:     ctx,
		resolver: resolver,
		hub:      hub,
		chat:     chatSvc,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// cross-origin policy is enforced by the bearer token, not Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Register mounts the websocket endpoints
func (g *Gateway) Register(engine *gin.Engine) {
	root := engine.Group("/ws")
	root.GET("/chat/:other/", g.Chat)
	root.GET("/users-sidebar/", g.Sidebar)
	root.GET("/notifications/", g.Notifications)
	root.GET("/customers/", g.Customers)
	root.GET("/stats/", g.Stats)
	root.GET("/activity/", g.topicEndpoint(realtime.GroupOpsActivity))
	root.GET("/collector_updates/", g.topicEndpoint(realtime.GroupCollectorUpdates))
	root.GET("/collectors/:id/", g.collectorEndpoint)
	root.GET("/stock_updates/", g.topicEndpoint(realtime.GroupStockUpdates))
	root.GET("/warehouse_updates/", g.topicEndpoint(realtime.GroupWarehouseUpdates))
	root.GET("/transfer_updates/", g.topicEndpoint(realtime.GroupTransferUpdates))
	root.GET("/fleet/:id/", g.fleetEndpoint)
	root.GET("/payments/:reference/", g.paymentEndpoint)
}

// authenticate upgrades the connection and resolves the caller. A missing
// token closes with 4001, an invalid or expired one with 4002; the upgrade
// happens first because close codes only exist on upgraded connections.
func (g *Gateway) authenticate(c *gin.Context) (*websocket.Conn, *identity.Principal, bool) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, nil, false
	}
	token := c.Query("token")
	if token == "" {
		g.reject(conn, realtime.CloseMissingToken, "missing token")
		return nil, nil, false
	}
	principal := g.resolver.ResolveToken(c.Request.Context(), token)
	if principal == nil {
		g.reject(conn, realtime.CloseInvalidToken, "invalid token")
		return nil, nil, false
	}
	return conn, principal, true
}

func (g *Gateway) reject(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

// serve joins the client to its groups and runs the pumps. Blocks until the
// peer disconnects.
func (g *Gateway) serve(conn *websocket.Conn, principal *identity.Principal, groups []string, onMessage func(client *realtime.Client, message []byte)) {
	client := realtime.NewClient(conn, principal.ID, g.cfg.SendBufferSize, g.cfg.WriteTimeout, g.cfg.PingInterval)
	for _, group := range groups {
		g.hub.Join(group, client)
	}
	defer g.hub.Remove(client)

	go client.WritePump()
	var handler func([]byte)
	if onMessage != nil {
		handler = func(message []byte) { onMessage(client, message) }
	}
	client.ReadPump(handler)
}

// chatFrame is the inbound command shape on a chat socket
type chatFrame struct {
	Type      string `json:"type"` // send, delivered, seen
	Body      string `json:"body,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// Chat handles /ws/chat/:other/, a direct conversation with one other
// principal. The caller is always a room participant because the room key is
// derived from their own id.
func (g *Gateway) Chat(c *gin.Context) {
	otherID, err := uuid.Parse(c.Param("other"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	conn, principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	room := chat.RoomKey(principal.ID, otherID)
	selfID := principal.ID

	g.serve(conn, principal, []string{room}, func(_ *realtime.Client, message []byte) {
		var frame chatFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			return
		}
		ctx := g.base
		switch frame.Type {
		case "send":
			if frame.Body == "" {
				return
			}
			if err := g.chat.EnqueueSend(ctx, selfID, otherID, frame.Body); err != nil {
				g.logger.Warn("chat send enqueue failed", zap.Error(err))
			}
		case "delivered":
			messageID, err := uuid.Parse(frame.MessageID)
			if err != nil {
				return
			}
			if err := g.chat.EnqueueDelivered(ctx, messageID); err != nil {
				g.logger.Warn("chat delivered enqueue failed", zap.Error(err))
			}
		case "seen":
			if err := g.chat.EnqueueSeen(ctx, selfID, otherID); err != nil {
				g.logger.Warn("chat seen enqueue failed", zap.Error(err))
			}
		}
	})
}

// Sidebar handles /ws/users-sidebar/, the unread-count recount stream
func (g *Gateway) Sidebar(c *gin.Context) {
	conn, principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	g.serve(conn, principal, []string{realtime.SidebarGroup(principal.ID)}, nil)
}

// Notifications handles /ws/notifications/, the feed push stream
func (g *Gateway) Notifications(c *gin.Context) {
	conn, principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	g.serve(conn, principal, []string{realtime.NotifyGroup(principal.ID)}, nil)
}

// Customers handles /ws/customers/, the caller's personal event stream
func (g *Gateway) Customers(c *gin.Context) {
	conn, principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	g.serve(conn, principal, []string{realtime.UserGroup(principal.ID)}, nil)
}

// Stats handles /ws/stats/. Snapshots are produced by RunStatsBroadcaster.
func (g *Gateway) Stats(c *gin.Context) {
	conn, principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	g.serve(conn, principal, []string{statsGroup}, nil)
}

func (g *Gateway) topicEndpoint(topic string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, principal, ok := g.authenticate(c)
		if !ok {
			return
		}
		g.serve(conn, principal, []string{topic}, nil)
	}
}

// collectorEndpoint streams one collector's location pings
func (g *Gateway) collectorEndpoint(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	g.topicEndpoint(realtime.CollectorGroup(id))(c)
}

// fleetEndpoint streams one vehicle's position pings
func (g *Gateway) fleetEndpoint(c *gin.Context) {
	g.topicEndpoint(realtime.FleetGroup(c.Param("id")))(c)
}

// paymentEndpoint streams one payment reference's settlement outcome
func (g *Gateway) paymentEndpoint(c *gin.Context) {
	g.topicEndpoint(realtime.PaymentGroup(c.Param("reference")))(c)
}

const statsGroup = "stats"

// statsSnapshot is what the stats stream pushes
type statsSnapshot struct {
	Type               string `json:"type"`
	ActivityListeners  int    `json:"activity_listeners"`
	CollectorListeners int    `json:"collector_listeners"`
	StockListeners     int    `json:"stock_update_listeners"`
	StatsListeners     int    `json:"stats_listeners"`
	At                 string `json:"at"`
}

// RunStatsBroadcaster pushes a listener-count snapshot to the stats group
// every interval while anyone is connected. Blocks until ctx is cancelled.
func (g *Gateway) RunStatsBroadcaster(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if g.hub.GroupSize(statsGroup) == 0 {
				continue
			}
			snapshot := statsSnapshot{
				Type:               "stats.snapshot",
				ActivityListeners:  g.hub.GroupSize(realtime.GroupOpsActivity),
				CollectorListeners: g.hub.GroupSize(realtime.GroupCollectorUpdates),
				StockListeners:     g.hub.GroupSize(realtime.GroupStockUpdates),
				StatsListeners:     g.hub.GroupSize(statsGroup),
				At:                 now.UTC().Format(time.RFC3339),
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				continue
			}
			g.hub.Publish(statsGroup, data)
		}
	}
}
