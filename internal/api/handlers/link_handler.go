package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apiContext "linkroute/internal/api/context"
	"linkroute/internal/engine/links"
	"linkroute/internal/engine/routing"
	"linkroute/internal/pkg/errors"
	"linkroute/internal/platform/auth"
	"linkroute/internal/platform/config"
)

type LinkHandler struct {
	svc           *links.Service
	tokens        *auth.TokenService
	shortBaseURL  string
	qrDefaultSize int
	maxPageSize   int
}

func NewLinkHandler(svc *links.Service, tokens *auth.TokenService, domains config.DomainsConfig, cfg config.LinksConfig) *LinkHandler {
	maxPage := cfg.MaxPageSize
	if maxPage <= 0 {
		maxPage = 100
	}
	return &LinkHandler{
		svc:           svc,
		tokens:        tokens,
		shortBaseURL:  shortBaseURL(domains),
		qrDefaultSize: cfg.QRDefaultSize,
		maxPageSize:   maxPage,
	}
}

func shortBaseURL(d config.DomainsConfig) string {
	host := d.ShortDomain
	if host == "" {
		host = d.APIDomain
	}
	if host == "" {
		return ""
	}
	return "https://" + host
}

type linkResponse struct {
	*links.Link
	ShortURL string `json:"shortUrl,omitempty"`
}

func (h *LinkHandler) respond(w http.ResponseWriter, status int, link *links.Link) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(link.Version, 10)))
	writeJSON(w, status, linkResponse{Link: link, ShortURL: h.shortURL(link.Alias)})
}

func (h *LinkHandler) shortURL(alias string) string {
	if h.shortBaseURL == "" {
		return ""
	}
	return h.shortBaseURL + "/" + alias
}

func actorFrom(r *http.Request) links.Actor {
	claims := apiContext.ClaimsFrom(r.Context())
	if claims == nil {
		return links.Actor{}
	}
	return links.Actor{ID: claims.UserID, Admin: claims.IsAdmin()}
}

// Create handles POST /urls/shorten.
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req links.LinkInput
	if !decodeJSON(w, r, &req, false) {
		return
	}

	link, err := h.svc.CreateLink(r.Context(), actorFrom(r).ID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.respond(w, http.StatusCreated, link)
}

// Update handles PUT /urls/{ref}, where ref is the link id. An If-Match header
// carrying the version turns the write into a conditional one.
func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	expected, ok := parseIfMatch(r.Header.Get("If-Match"))
	if !ok {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "If-Match must be a link version", nil)
		return
	}

	var req links.LinkInput
	if !decodeJSON(w, r, &req, false) {
		return
	}

	link, err := h.svc.UpdateLink(r.Context(), chi.URLParam(r, "ref"), actorFrom(r), &req, expected)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, link)
}

// parseIfMatch accepts "3", "\"3\"" and W/"3". An empty header or * means unconditional.
func parseIfMatch(header string) (*int64, bool) {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return nil, true
	}
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return nil, false
	}
	return &n, true
}

// Delete handles DELETE /urls/{ref}. Links are archived, never removed.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ArchiveLink(r.Context(), chi.URLParam(r, "ref"), actorFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /urls for the calling owner.
func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 50
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}
	offset := (page - 1) * limit

	list, err := h.svc.ListLinks(r.Context(), actorFrom(r).ID, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]linkResponse, len(list))
	for i, l := range list {
		out[i] = linkResponse{Link: l, ShortURL: h.shortURL(l.Alias)}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"links": out,
		"page":  page,
		"limit": limit,
	})
}

// Get handles GET /urls/{ref} by alias. Destinations of a password protected
// link are only included once the caller presents a valid unlock token.
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "ref")
	link, err := h.svc.GetByAlias(r.Context(), alias)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	unlocked := false
	if tok := unlockToken(r, alias); tok != "" && h.tokens != nil {
		unlocked = h.tokens.VerifyUnlockToken(tok, alias) == nil
	}

	writeJSON(w, http.StatusOK, linkResponse{Link: link.Public(unlocked), ShortURL: h.shortURL(link.Alias)})
}

// QRCode handles GET /urls/{ref}/qr.
func (h *LinkHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "ref")
	if _, err := h.svc.GetByAlias(r.Context(), alias); err != nil {
		writeServiceError(w, r, err)
		return
	}

	size := 0
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "size must be an integer", nil)
			return
		}
		size = n
	}

	target := h.shortURL(alias)
	if target == "" {
		target = "/" + alias
	}
	png, err := links.GenerateQRCode(target, size, h.qrDefaultSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type ruleReport struct {
	Index   int            `json:"index"`
	ID      routing.RuleID `json:"id,omitempty"`
	Valid   bool           `json:"valid"`
	Reasons []string       `json:"reasons,omitempty"`
}

// ValidateRules handles POST /urls/validate-rules. It reports every rule
// without blocking, for authoring forms.
func (h *LinkHandler) ValidateRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rules []routing.Rule `json:"rules"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	allValid := len(req.Rules) <= routing.MaxRules
	reports := make([]ruleReport, len(req.Rules))
	for i, rule := range req.Rules {
		res := routing.Validate(rule)
		reports[i] = ruleReport{Index: i, ID: rule.ID, Valid: res.Valid, Reasons: res.Reasons}
		allValid = allValid && res.Valid
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    allValid,
		"maxRules": routing.MaxRules,
		"rules":    reports,
	})
}

type fieldOption struct {
	Field     routing.Field      `json:"field"`
	Operators []routing.Operator `json:"operators"`
}

// Options handles GET /routing/options.
func (h *LinkHandler) Options(w http.ResponseWriter, r *http.Request) {
	fields := routing.Fields()
	out := make([]fieldOption, len(fields))
	for i, f := range fields {
		out[i] = fieldOption{Field: f, Operators: routing.OperatorsFor(f)}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fields":   out,
		"os":       routing.OSOptions,
		"device":   routing.DeviceOptions,
		"browser":  routing.BrowserOptions,
		"maxRules": routing.MaxRules,
	})
}

// SetRestriction handles PUT /admin/urls/{ref}/restriction.
func (h *LinkHandler) SetRestriction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Restricted bool   `json:"restricted"`
		Reason     string `json:"reason"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	link, err := h.svc.SetRestriction(r.Context(), chi.URLParam(r, "ref"), actorFrom(r), req.Restricted, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, link)
}
