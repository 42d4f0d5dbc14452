// cmd/push-gateway/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"pinhub/internal/pkg/bootstrap"
	"pinhub/internal/pkg/logger"
	"pinhub/internal/pkg/mq"
	"pinhub/internal/pkg/redis"
	"pinhub/internal/service/groupbuy/infrastructure/adapter"
	"pinhub/internal/service/groupbuy/port"
)

const (
	serviceName     = "push-gateway"
	consumerGroupID = "push-gateway-consumer-group"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var (
	nodeID   = serviceName + "-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
)

// Hub 维护所有活跃连接，按 UserID 索引。
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.lock.Lock()
			if old, ok := h.clients[client.userID]; ok {
				close(old.send)
			}
			h.clients[client.userID] = client
			h.lock.Unlock()
			logger.Logger.Info().Str("user_id", client.userID).Str("node", nodeID).Msg("client registered")
		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger.Info().Str("user_id", client.userID).Msg("client unregistered")
		}
	}
}

// Push 向单个在线用户投递消息；不在线直接丢弃。
func (h *Hub) Push(userID string, message []byte) {
	h.lock.RLock()
	client, ok := h.clients[userID]
	h.lock.RUnlock()
	if !ok {
		return
	}
	select {
	case client.send <- message:
	default:
		// 发送缓冲已满，认为连接已死，交给 readPump 的超时回收。
	}
}

// Client 是一条 WebSocket 连接。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, sessions port.SessionService, w http.ResponseWriter, r *http.Request) {
	identity, err := lookupIdentity(r, sessions)
	if err != nil {
		http.Error(w, "session lookup failed", http.StatusInternalServerError)
		return
	}
	if identity == nil {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: identity.UserID}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

func lookupIdentity(r *http.Request, sessions port.SessionService) (*port.Identity, error) {
	sid := r.URL.Query().Get("session_id")
	if sid == "" {
		if cookie, err := r.Cookie("session_id"); err == nil {
			sid = cookie.Value
		}
	}
	return sessions.Lookup(r.Context(), sid)
}

// lifecycleEnvelope 与生产侧的消息格式一致，payload 按需解出收件人。
type lifecycleEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// recipients 从事件里解出应收到推送的用户。
// 激活/过期/退款推给团长，成团推给全部中奖成员。
func recipients(envelope *lifecycleEnvelope) []string {
	var common struct {
		LeaderID  string   `json:"leaderId"`
		WinnerIDs []string `json:"winnerIds"`
	}
	if err := json.Unmarshal(envelope.Payload, &common); err != nil {
		return nil
	}
	if len(common.WinnerIDs) > 0 {
		return common.WinnerIDs
	}
	if common.LeaderID != "" {
		return []string{common.LeaderID}
	}
	return nil
}

// consumeEvents 消费生命周期事件并推送给在线用户。
func consumeEvents(ctx context.Context, hub *Hub, brokers []string, topic string) error {
	reader := mq.NewKafkaReader(brokers, topic, consumerGroupID)
	defer reader.Close()

	logger.Logger.Info().Str("topic", topic).Str("group", consumerGroupID).Msg("consuming lifecycle events")
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Logger.Error().Err(err).Msg("failed to fetch message")
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)

		var envelope lifecycleEnvelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Ctx(msgCtx).Warn().Err(err).Msg("skipping malformed event")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		for _, userID := range recipients(&envelope) {
			hub.Push(userID, msg.Value)
		}
		logger.Ctx(msgCtx).Debug().Str("kind", envelope.Kind).Msg("event dispatched")

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("failed to commit offset")
		}
	}
}

func main() {
	logger.Init(serviceName)
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatalf("failed to initialize redis client: %v", err)
	}
	defer redisClient.Close()
	sessions := adapter.NewRedisSessionAdapter(redisClient)

	hub := newHub()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.run(ctx)
		return nil
	})
	g.Go(func() error {
		return consumeEvents(ctx, hub, cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topic)
	})
	g.Go(func() error {
		return runServer(ctx, hub, sessions)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("push gateway exited: %v", err)
	}
	logger.Logger.Info().Msg("push gateway shut down")
}

func runServer(ctx context.Context, hub *Hub, sessions port.SessionService) error {
	httpPort := 8088
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			httpPort = n
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, sessions, w, r)
	})
	server := &http.Server{Addr: ":" + strconv.Itoa(httpPort), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Logger.Info().Str("node", nodeID).Int("port", httpPort).Msg("push gateway listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
