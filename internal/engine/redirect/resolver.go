package redirect

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"linkroute/internal/engine/links"
	"linkroute/internal/engine/routing"
	"linkroute/internal/engine/visitor"
	"linkroute/internal/platform/telemetry"
)

// Status is the terminal state of one resolution.
type Status string

const (
	StatusNotFound         Status = "NOT_FOUND"
	StatusPaused           Status = "PAUSED"
	StatusRestricted       Status = "RESTRICTED"
	StatusScheduledNotYet  Status = "SCHEDULED_NOT_YET"
	StatusExpired          Status = "EXPIRED"
	StatusPasswordRequired Status = "PASSWORD_REQUIRED"
	StatusSplash           Status = "SPLASH"
	StatusRedirect         Status = "REDIRECT"
	StatusText             Status = "TEXT"
)

const (
	msgNotFound   = "This link does not exist."
	msgPaused     = "This link has been paused by its owner."
	msgRestricted = "This link has been restricted."
	msgScheduled  = "This link is not active yet."
	msgExpired    = "This link has expired."
	msgPassword   = "This link is password protected."
)

// Request is one visit to resolve.
type Request struct {
	Alias string
	Meta  visitor.RequestMeta
	// UnlockToken proves the visitor already passed the password gate.
	UnlockToken string
	// Override replaces individual extracted visitor fields when non-empty.
	Override *routing.VisitorContext
}

// Decision is the outcome of running the gate pipeline.
type Decision struct {
	Status        Status                  `json:"status"`
	Destination   string                  `json:"destination,omitempty"`
	Message       string                  `json:"message,omitempty"`
	StartDate     *time.Time              `json:"startDate,omitempty"`
	Splash        *links.SplashScreen     `json:"splashScreen,omitempty"`
	MatchedRuleID routing.RuleID          `json:"matchedRuleId,omitempty"`
	RedirectType  string                  `json:"redirectType,omitempty"`
	TextContent   string                  `json:"textContent,omitempty"`
	Expired       bool                    `json:"expired,omitempty"`
	Context       *routing.VisitorContext `json:"context,omitempty"`

	Link *links.Link `json:"-"`
}

// Terminal reports whether the visitor does not reach a destination.
func (d *Decision) Terminal() bool {
	return d.Destination == "" && d.Status != StatusText
}

type LinkLoader interface {
	Load(ctx context.Context, alias string) (*links.Link, error)
}

type ContextExtractor interface {
	Extract(ctx context.Context, meta visitor.RequestMeta) routing.VisitorContext
}

// UnlockVerifier checks a token issued after a successful password check.
type UnlockVerifier interface {
	VerifyUnlockToken(token, alias string) error
}

type Resolver struct {
	loader    LinkLoader
	extractor ContextExtractor
	unlock    UnlockVerifier
	now       func() time.Time
}

func NewResolver(loader LinkLoader, extractor ContextExtractor, unlock UnlockVerifier) *Resolver {
	return &Resolver{loader: loader, extractor: extractor, unlock: unlock, now: time.Now}
}

// WithClock overrides the time source used by the schedule and expiry gates.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve runs the gates once, in order, and stops at the first terminal
// state. Only a storage failure is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Decision, error) {
	d, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	telemetry.RedirectDecisions.WithLabelValues(string(d.Status)).Inc()
	return d, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Decision, error) {
	if req.Alias == "" {
		return &Decision{Status: StatusNotFound, Message: msgNotFound}, nil
	}

	link, err := r.loader.Load(ctx, req.Alias)
	if errors.Is(err, links.ErrNotFound) {
		return &Decision{Status: StatusNotFound, Message: msgNotFound}, nil
	}
	if err != nil {
		log.Error().Err(err).Str("alias", req.Alias).Msg("failed to load link")
		return nil, err
	}
	if link.Status == links.StatusArchived {
		return &Decision{Status: StatusNotFound, Message: msgNotFound}, nil
	}

	d := &Decision{Link: link, RedirectType: link.RedirectType}

	if link.Status == links.StatusPaused {
		d.Status, d.Message = StatusPaused, orDefault(link.PausedMessage, msgPaused)
		return d, nil
	}

	if link.Restricted {
		d.Status, d.Message = StatusRestricted, orDefault(link.RestrictionReason, msgRestricted)
		return d, nil
	}

	now := r.now()
	if s := link.ScheduledRedirect; s != nil && s.Enabled && s.StartDate != nil && now.Before(*s.StartDate) {
		d.Status, d.Message, d.StartDate = StatusScheduledNotYet, orDefault(s.Message, msgScheduled), s.StartDate
		return d, nil
	}

	if expired(link, now) {
		if e := link.Expiration; e != nil && e.Enabled && e.ExpiredRedirect != "" {
			d.Status, d.Destination, d.Expired = StatusRedirect, e.ExpiredRedirect, true
			return d, nil
		}
		d.Status, d.Message = StatusExpired, msgExpired
		return d, nil
	}

	if link.HasPassword && !r.unlocked(req) {
		d.Status, d.Message = StatusPasswordRequired, msgPassword
		return d, nil
	}

	if link.Kind == links.KindText {
		d.Status, d.TextContent = StatusText, link.TextContent
		return d, nil
	}

	d.Destination = link.DefaultDestination()
	if len(link.MultipleDestinationRules) > 0 {
		vc := r.visitorContext(ctx, req)
		res := routing.EvaluateDetailed(link.MultipleDestinationRules, vc, link.DefaultDestination())
		d.Destination, d.MatchedRuleID, d.Context = res.Destination, res.RuleID, &vc
		if res.Matched {
			telemetry.RuleEvaluations.WithLabelValues("matched").Inc()
		} else {
			telemetry.RuleEvaluations.WithLabelValues("default").Inc()
		}
	}

	if sp := link.SplashScreen; sp != nil && sp.Enabled {
		d.Status, d.Splash = StatusSplash, sp
		return d, nil
	}

	d.Status = StatusRedirect
	return d, nil
}

func (r *Resolver) visitorContext(ctx context.Context, req Request) routing.VisitorContext {
	var vc routing.VisitorContext
	if r.extractor != nil {
		vc = r.extractor.Extract(ctx, req.Meta)
	}
	if req.Override != nil {
		vc = vc.Merge(*req.Override)
	}
	return vc
}

func (r *Resolver) unlocked(req Request) bool {
	if req.UnlockToken == "" || r.unlock == nil {
		return false
	}
	if err := r.unlock.VerifyUnlockToken(req.UnlockToken, req.Alias); err != nil {
		log.Debug().Err(err).Str("alias", req.Alias).Msg("unlock token rejected")
		return false
	}
	return true
}

func expired(link *links.Link, now time.Time) bool {
	if s := link.ScheduledRedirect; s != nil && s.Enabled && s.EndDate != nil && !now.Before(*s.EndDate) {
		return true
	}
	if e := link.Expiration; e != nil && e.Enabled && e.ExpireAt != nil && now.After(*e.ExpireAt) {
		return true
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
