package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sponsorlink/marketplace/backend/internal/model/chat"
	chatService "github.com/sponsorlink/marketplace/backend/internal/service/chat"
	"github.com/sponsorlink/marketplace/backend/pkg/utils"
)

// Handler 处理聊天组件会话相关请求
type Handler struct {
	chatSvc *chatService.Service
	limiter func(http.Handler) http.Handler
}

// New 创建聊天处理器，limiter 可为 nil
func New(chatSvc *chatService.Service, limiter func(http.Handler) http.Handler) *Handler {
	if limiter == nil {
		limiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		chatSvc: chatSvc,
		limiter: limiter,
	}
}

// RegisterRoutes 注册会话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleCloseSession)
	r.With(h.limiter).Post("/sessions/{sessionID}/messages", h.handleAddMessage)
	r.Post("/sessions/{sessionID}/toggle", h.handleToggle)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PlaybookID string `json:"playbookId"`
	}

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.chatSvc.CreateSession(r.Context(), payload.PlaybookID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, conv.Snapshot())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, conv.Snapshot())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
		Sender  string `json:"sender"`
	}

	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sender, err := chat.ParseSender(payload.Sender)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.chatSvc.AddMessage(r.Context(), chi.URLParam(r, "sessionID"), payload.Content, sender)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, message)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	open, err := h.chatSvc.Toggle(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"open": open})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound), errors.Is(err, chatService.ErrPlaybookNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
