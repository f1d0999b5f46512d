package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/tagforge/tagsync/cmd/tagsync/stparse"
	"github.com/tagforge/tagsync/common/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now (TODO: Configure CORS properly in production)
		return true
	},
}

// Syncer reconciles a parsed tag set into persistence
type Syncer interface {
	Reconcile(ctx context.Context, userID, projectID string, parsed []stparse.RawTag) ([]models.Tag, error)
}

// TagLister reads the persisted tag list of a project
type TagLister interface {
	ListByProject(ctx context.Context, projectID string) ([]models.Tag, error)
}

// AccessChecker verifies project ownership. Queried fresh on every
// message; decisions are never cached across messages.
type AccessChecker interface {
	OwnedBy(ctx context.Context, projectID, userID string) (bool, error)
}

// TokenVerifier authenticates the handshake token
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Publisher fans broadcasts out to sibling instances; optional
type Publisher interface {
	PublishEvent(ctx context.Context, channel, message string) error
}

// ParseFunc turns live source code into raw tag tuples
type ParseFunc func(code string, vendor models.Vendor) []stparse.RawTag

// EngineConfig wires an Engine
type EngineConfig struct {
	Hub      *Hub
	Sync     Syncer
	Tags     TagLister
	Access   AccessChecker
	Verifier TokenVerifier
	Parse    ParseFunc

	// Optional cross-instance fan-out
	Publisher        Publisher
	BroadcastChannel string

	DefaultDebounce time.Duration
	MaxDebounce     time.Duration

	Logger *logger.Logger
}

// Engine is the connection-scoped protocol state machine wrapping the
// reconciler behind a debounced subscribe/broadcast message protocol
type Engine struct {
	hub      *Hub
	sync     Syncer
	tags     TagLister
	access   AccessChecker
	verifier TokenVerifier
	parse    ParseFunc

	publisher Publisher
	channel   string
	origin    string

	defaultDebounce time.Duration
	maxDebounce     time.Duration

	log *logger.Logger
}

// NewEngine creates a new protocol engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.DefaultDebounce <= 0 {
		cfg.DefaultDebounce = 500 * time.Millisecond
	}
	if cfg.MaxDebounce <= 0 {
		cfg.MaxDebounce = 10 * time.Second
	}

	return &Engine{
		hub:             cfg.Hub,
		sync:            cfg.Sync,
		tags:            cfg.Tags,
		access:          cfg.Access,
		verifier:        cfg.Verifier,
		parse:           cfg.Parse,
		publisher:       cfg.Publisher,
		channel:         cfg.BroadcastChannel,
		origin:          uuid.NewString(),
		defaultDebounce: cfg.DefaultDebounce,
		maxDebounce:     cfg.MaxDebounce,
		log:             cfg.Logger,
	}
}

// Origin identifies this instance in cross-instance broadcasts
func (e *Engine) Origin() string { return e.origin }

// HandleWebSocket authenticates the handshake and upgrades the
// connection. The token travels out-of-band in the query string; an
// invalid token terminates the connection immediately, there is no
// retry at this layer.
// GET /ws?token=...
func (e *Engine) HandleWebSocket(c echo.Context) error {
	userID, err := e.verifier.Verify(c.QueryParam("token"))
	if err != nil {
		e.log.Warn("websocket auth failed", "remote", c.RealIP(), "error", err)
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "invalid or missing token",
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		e.log.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	s := newSession(e.hub, conn, userID)
	e.hub.Register(s)

	e.log.WithConnID(s.id).Info("websocket connected",
		"user_id", userID,
		"remote", c.RealIP(),
	)

	go s.writePump()
	go s.readPump(e)

	return nil
}

// HandleMessage dispatches one client frame. Protocol errors go back
// to the offending connection only; the connection stays open.
func (e *Engine) HandleMessage(s *Session, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		e.sendError(s, "invalid message")
		return
	}

	switch msg.Type {
	case MsgSubscribe:
		e.handleSubscribe(s, msg)
	case MsgUnsubscribe:
		e.hub.Unsubscribe(s)
	case MsgSyncTags:
		e.handleSyncTags(s, msg)
	case MsgPing:
		e.send(s, serverMessage{Type: MsgPong})
	default:
		e.sendError(s, "unknown message type: "+msg.Type)
	}
}

func (e *Engine) handleSubscribe(s *Session, msg clientMessage) {
	if msg.ProjectID == "" {
		e.sendError(s, "subscribe requires projectId")
		return
	}

	ctx := context.Background()
	owned, err := e.access.OwnedBy(ctx, msg.ProjectID, s.userID)
	if err != nil {
		e.sendError(s, "subscribe failed")
		e.log.Error("ownership check failed", "project_id", msg.ProjectID, "error", err)
		return
	}
	if !owned {
		e.sendError(s, "access denied")
		return
	}

	e.hub.Subscribe(msg.ProjectID, s)

	// Immediately deliver the current persisted tag list
	tags, err := e.tags.ListByProject(ctx, msg.ProjectID)
	if err != nil {
		e.sendError(s, "failed to load tags")
		e.log.Error("tag list failed", "project_id", msg.ProjectID, "error", err)
		return
	}
	e.send(s, newTagsUpdated(msg.ProjectID, tags))
}

func (e *Engine) handleSyncTags(s *Session, msg clientMessage) {
	if msg.ProjectID == "" {
		e.sendError(s, "sync_tags requires projectId")
		return
	}
	if msg.STCode == "" {
		e.sendError(s, "sync_tags requires stCode")
		return
	}

	debounce := e.defaultDebounce
	if msg.DebounceMs != nil && *msg.DebounceMs > 0 {
		debounce = time.Duration(*msg.DebounceMs) * time.Millisecond
		if debounce > e.maxDebounce {
			debounce = e.maxDebounce
		}
	}

	syncID := uuid.NewString()
	e.send(s, serverMessage{
		Type:      MsgSyncQueued,
		ProjectID: msg.ProjectID,
		SyncID:    syncID,
	})

	projectID := msg.ProjectID
	vendor := models.Vendor(msg.Vendor)
	code := msg.STCode

	// One pending timer per connection: a newer sync_tags supersedes
	// the previous one (last write wins per connection, not per project)
	s.scheduleDebounce(debounce, func() {
		e.runSync(s, projectID, vendor, code, syncID)
	})

	e.log.Debug("sync queued",
		"conn_id", s.id,
		"project_id", projectID,
		"sync_id", syncID,
		"debounce", debounce,
	)
}

// runSync fires when the debounce window elapses. The message's vendor
// is only a parser hint; the reconciler formats tags for the project's
// stored vendor, which is authoritative.
func (e *Engine) runSync(s *Session, projectID string, vendor models.Vendor, code, syncID string) {
	ctx := context.Background()

	parsed := e.parse(code, vendor)

	tags, err := e.sync.Reconcile(ctx, s.userID, projectID, parsed)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			e.sendError(s, "access denied")
		} else {
			e.sendError(s, "sync failed")
		}
		e.log.Error("reconciliation failed",
			"conn_id", s.id,
			"project_id", projectID,
			"sync_id", syncID,
			"error", err,
		)
		return
	}

	payload, err := json.Marshal(newTagsUpdated(projectID, tags))
	if err != nil {
		e.log.Error("failed to marshal broadcast", "error", err)
		return
	}

	// Every subscriber of the project gets the update, not just the
	// originating connection
	e.hub.Broadcast(projectID, payload)
	e.publishRemote(ctx, projectID, payload)

	e.log.Info("sync complete",
		"project_id", projectID,
		"sync_id", syncID,
		"tags", len(tags),
	)
}

// publishRemote forwards a broadcast to sibling instances via pub/sub
func (e *Engine) publishRemote(ctx context.Context, projectID string, payload []byte) {
	if e.publisher == nil {
		return
	}

	env, err := json.Marshal(broadcastEnvelope{
		Origin:    e.origin,
		ProjectID: projectID,
		Payload:   payload,
	})
	if err != nil {
		e.log.Error("failed to marshal broadcast envelope", "error", err)
		return
	}

	if err := e.publisher.PublishEvent(ctx, e.channel, string(env)); err != nil {
		e.log.Warn("cross-instance publish failed", "project_id", projectID, "error", err)
	}
}

func (e *Engine) send(s *Session, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		e.log.Error("failed to marshal message", "error", err)
		return
	}
	s.enqueue(data)
}

func (e *Engine) sendError(s *Session, message string) {
	e.send(s, serverMessage{Type: MsgError, Message: message})
}
