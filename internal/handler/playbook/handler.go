package playbook

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sponsorlink/marketplace/backend/internal/model/playbook"
	"github.com/sponsorlink/marketplace/backend/pkg/utils"
)

// Handler 提供对话剧本查询接口
type Handler struct {
	playbooks playbook.Store
}

// New 创建剧本处理器
func New(playbooks playbook.Store) *Handler {
	return &Handler{playbooks: playbooks}
}

// RegisterRoutes 注册剧本路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/playbooks", h.handleList)
	r.Get("/playbooks/{playbookID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.playbooks.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.playbooks.FindByID(chi.URLParam(r, "playbookID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "playbook not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
