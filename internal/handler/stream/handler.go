package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/sponsorlink/marketplace/backend/internal/service/chat"
	"github.com/sponsorlink/marketplace/backend/pkg/utils"
)

// Handler pushes conversation updates to the widget via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *zap.Logger
	buffer    int
	heartbeat time.Duration
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, logger *zap.Logger, buffer int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chatSvc:   chatSvc,
		logger:    logger,
		buffer:    buffer,
		heartbeat: 15 * time.Second,
	}
}

// RegisterRoutes registers the SSE route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/events", h.handleEvents)
}

// handleEvents sends a snapshot event, then one message event per appended message.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before the snapshot so nothing falls between the two.
	feed, cancel := conv.Subscribe(h.buffer)
	defer cancel()

	utils.SetupSSEHeaders(w)
	snapshot := conv.Snapshot()
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshot); err != nil {
		h.logger.Debug("sse write failed", zap.String("session", sessionID), zap.Error(err))
		return
	}
	lastSeq := 0
	if n := len(snapshot.Messages); n > 0 {
		lastSeq = snapshot.Messages[n-1].Seq
	}

	h.logger.Debug("sse stream opened", zap.String("session", sessionID))
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("sse stream closed by client", zap.String("session", sessionID))
			return
		case msg, ok := <-feed:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"sessionId": sessionID})
				return
			}
			if msg.Seq <= lastSeq {
				continue
			}
			lastSeq = msg.Seq
			if err := utils.SendSSEEvent(w, flusher, "message", map[string]any{
				"message":  msg,
				"userType": conv.UserType(),
			}); err != nil {
				h.logger.Debug("sse write failed", zap.String("session", sessionID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
