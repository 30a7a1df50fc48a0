package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"linkroute/internal/engine/links"
	"linkroute/internal/platform/audit"
)

type AuditHandler struct {
	links *links.Service
	audit *audit.Logger
}

func NewAuditHandler(linkSvc *links.Service, logger *audit.Logger) *AuditHandler {
	return &AuditHandler{links: linkSvc, audit: logger}
}

// List handles GET /urls/{ref}/audit, where ref is the link id. Only the
// owner and admins can read the trail.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if actor := actorFrom(r); !actor.Admin && actor.ID != link.OwnerID {
		writeServiceError(w, r, links.ErrForbidden)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 100
	}

	entries, err := h.audit.List(r.Context(), link.ID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
