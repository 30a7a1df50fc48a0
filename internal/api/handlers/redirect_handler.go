package handlers

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/analytics"
	"linkroute/internal/engine/links"
	"linkroute/internal/engine/redirect"
	"linkroute/internal/engine/routing"
	"linkroute/internal/engine/visitor"
	"linkroute/internal/pkg/errors"
	"linkroute/internal/platform/auth"
)

const (
	unlockCookiePrefix = "lr_unlock_"
	unlockHeader       = "X-Unlock-Token"
)

var splashPage = template.Must(template.New("splash").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="robots" content="noindex">
<meta http-equiv="refresh" content="{{.Delay}};url={{.Destination}}">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Message}}<p>{{.Message}}</p>{{end}}
<p>Redirecting in {{.Delay}} seconds. <a href="{{.Destination}}">Continue now</a></p>
</body>
</html>
`))

type RedirectHandler struct {
	resolver   *redirect.Resolver
	links      *links.Service
	extractor  redirect.ContextExtractor
	tokens     *auth.TokenService
	recorder   *analytics.Recorder
	trustProxy bool
	now        func() time.Time
}

func NewRedirectHandler(
	resolver *redirect.Resolver,
	linkSvc *links.Service,
	extractor redirect.ContextExtractor,
	tokens *auth.TokenService,
	recorder *analytics.Recorder,
	trustProxy bool,
) *RedirectHandler {
	return &RedirectHandler{
		resolver:   resolver,
		links:      linkSvc,
		extractor:  extractor,
		tokens:     tokens,
		recorder:   recorder,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// unlockToken looks for a password unlock token in the query, a header, then
// the per-alias cookie.
func unlockToken(r *http.Request, alias string) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if t := r.Header.Get(unlockHeader); t != "" {
		return t
	}
	if c, err := r.Cookie(unlockCookiePrefix + alias); err == nil {
		return c.Value
	}
	return ""
}

// Redirect serves GET /:alias on the short domain.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	alias := ps.ByName("alias")
	meta := visitor.MetaFromRequest(r, h.trustProxy)

	d, err := h.resolver.Resolve(r.Context(), redirect.Request{
		Alias:       alias,
		Meta:        meta,
		UnlockToken: unlockToken(r, alias),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch d.Status {
	case redirect.StatusRedirect:
		h.track(d, meta)
		code := http.StatusFound
		if d.RedirectType == links.RedirectPermanent && !d.Expired {
			code = http.StatusMovedPermanently
		}
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, d.Destination, code)
	case redirect.StatusSplash:
		h.track(d, meta)
		h.writeSplash(w, d)
	case redirect.StatusText:
		h.track(d, meta)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(d.TextContent))
	default:
		writeTerminal(w, d)
	}
}

type terminalError struct {
	status int
	code   string
}

// terminalErrors maps terminal states onto HTTP statuses and envelope codes.
var terminalErrors = map[redirect.Status]terminalError{
	redirect.StatusNotFound:         {http.StatusNotFound, errors.ErrCodeNotFound},
	redirect.StatusPaused:           {http.StatusGone, errors.ErrCodePaused},
	redirect.StatusExpired:          {http.StatusGone, errors.ErrCodeExpired},
	redirect.StatusRestricted:       {http.StatusForbidden, errors.ErrCodeRestricted},
	redirect.StatusScheduledNotYet:  {http.StatusTooEarly, errors.ErrCodeScheduledNotYet},
	redirect.StatusPasswordRequired: {http.StatusUnauthorized, errors.ErrCodePasswordRequired},
}

func writeTerminal(w http.ResponseWriter, d *redirect.Decision) {
	te, ok := terminalErrors[d.Status]
	if !ok {
		te = terminalError{http.StatusInternalServerError, errors.ErrCodeInternal}
	}
	var details interface{}
	if d.StartDate != nil {
		details = map[string]time.Time{"startDate": *d.StartDate}
	}
	errors.WriteError(w, te.status, te.code, d.Message, details)
}

func (h *RedirectHandler) writeSplash(w http.ResponseWriter, d *redirect.Decision) {
	title := d.Splash.Title
	if title == "" {
		title = "Redirecting"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	err := splashPage.Execute(w, struct {
		Title       string
		Message     string
		Delay       int
		Destination string
	}{title, d.Splash.Message, d.Splash.DelaySeconds, d.Destination})
	if err != nil {
		log.Error().Err(err).Msg("failed to render splash page")
	}
}

func (h *RedirectHandler) track(d *redirect.Decision, meta visitor.RequestMeta) {
	if h.recorder == nil || d.Link == nil {
		return
	}
	h.recorder.Record(analytics.NewClick(d.Link.ID, d.Link.Alias, d.Destination, d.MatchedRuleID, meta, d.Context, h.now()))
}

type visitRequest struct {
	Token   string                  `json:"token"`
	Context *routing.VisitorContext `json:"context"`
}

// Resolve handles POST /urls/{ref}/resolve and returns the full decision for
// the redirect page. Clicks are reported separately by the page.
func (h *RedirectHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "ref")
	var req visitRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	token := req.Token
	if token == "" {
		token = unlockToken(r, alias)
	}

	d, err := h.resolver.Resolve(r.Context(), redirect.Request{
		Alias:       alias,
		Meta:        visitor.MetaFromRequest(r, h.trustProxy),
		UnlockToken: token,
		Override:    req.Context,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

type evaluateResponse struct {
	Destination   string                 `json:"destination"`
	MatchedRuleID routing.RuleID         `json:"matchedRuleId,omitempty"`
	Matched       bool                   `json:"matched"`
	Context       routing.VisitorContext `json:"context"`
}

// EvaluateRules handles POST /urls/{ref}/evaluate-rules. The visitor context
// is inferred from request headers; fields in the optional body context
// override the inferred ones.
func (h *RedirectHandler) EvaluateRules(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "ref")
	var req visitRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	link, err := h.links.GetByAlias(r.Context(), alias)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if link.HasPassword {
		token := req.Token
		if token == "" {
			token = unlockToken(r, alias)
		}
		if token == "" || h.tokens.VerifyUnlockToken(token, alias) != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodePasswordRequired, "This link is password protected.", nil)
			return
		}
	}

	vc := h.extractor.Extract(r.Context(), visitor.MetaFromRequest(r, h.trustProxy))
	if req.Context != nil {
		vc = vc.Merge(*req.Context)
	}

	res := routing.EvaluateDetailed(link.MultipleDestinationRules, vc, link.DefaultDestination())
	writeJSON(w, http.StatusOK, evaluateResponse{
		Destination:   res.Destination,
		MatchedRuleID: res.RuleID,
		Matched:       res.Matched,
		Context:       vc,
	})
}

// VerifyPassword handles POST /urls/{ref}/verify-password. On success it
// returns an unlock token scoped to the alias and sets it as a cookie.
func (h *RedirectHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "ref")
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req, false) {
		return
	}

	link, err := h.links.GetByAlias(r.Context(), alias)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !h.links.VerifyPassword(link, req.Password) {
		log.Info().Str("alias", alias).Msg("wrong link password")
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Incorrect password", nil)
		return
	}

	token, expiresAt, err := h.tokens.GenerateUnlockToken(alias)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     unlockCookiePrefix + alias,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": expiresAt,
	})
}
