package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"linkroute/internal/engine/analytics"
	"linkroute/internal/engine/links"
	"linkroute/internal/engine/routing"
	"linkroute/internal/engine/visitor"
)

type AnalyticsHandler struct {
	links      *links.Service
	clicks     *analytics.Repository
	recorder   *analytics.Recorder
	trustProxy bool
	now        func() time.Time
}

func NewAnalyticsHandler(linkSvc *links.Service, clicks *analytics.Repository, recorder *analytics.Recorder, trustProxy bool) *AnalyticsHandler {
	return &AnalyticsHandler{links: linkSvc, clicks: clicks, recorder: recorder, trustProxy: trustProxy, now: time.Now}
}

// TrackClick handles POST /analytics/{ref}/click. It always answers 202 for
// a live link, even when the click is dropped.
func (h *AnalyticsHandler) TrackClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination   string                  `json:"destination"`
		MatchedRuleID routing.RuleID          `json:"matchedRuleId"`
		Referrer      string                  `json:"referrer"`
		Context       *routing.VisitorContext `json:"context"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}

	link, err := h.links.GetByAlias(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	meta := visitor.MetaFromRequest(r, h.trustProxy)
	if req.Referrer != "" {
		meta.Referrer = req.Referrer
	}
	dest := req.Destination
	if dest == "" {
		dest = link.DefaultDestination()
	}

	accepted := h.recorder.Record(analytics.NewClick(link.ID, link.Alias, dest, req.MatchedRuleID, meta, req.Context, h.now()))
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

// ListClicks handles GET /analytics/{ref}/clicks for the owner of link {ref}.
func (h *AnalyticsHandler) ListClicks(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if actor := actorFrom(r); !actor.Admin && actor.ID != link.OwnerID {
		writeServiceError(w, r, links.ErrForbidden)
		return
	}

	q := r.URL.Query()
	end := h.now().UnixMilli()
	start := end - (24 * 60 * 60 * 1000)
	if v, err := strconv.ParseInt(q.Get("start_ts"), 10, 64); err == nil {
		start = v
	}
	if v, err := strconv.ParseInt(q.Get("end_ts"), 10, 64); err == nil {
		end = v
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	clicks, err := h.clicks.ListClicks(r.Context(), link.ID, start, end, limit, (page-1)*limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clicks":     clicks,
		"clickCount": link.ClickCount,
		"page":       page,
		"limit":      limit,
	})
}
