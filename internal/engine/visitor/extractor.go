package visitor

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"linkroute/internal/engine/routing"
	"linkroute/internal/pkg/geoip"
	"linkroute/internal/pkg/parser"
	"linkroute/internal/platform/telemetry"
)

// RequestMeta is the raw request data a visitor context is derived from.
type RequestMeta struct {
	IP             string
	UserAgent      string
	AcceptLanguage string
	Referrer       string
}

// MetaFromRequest reads RequestMeta off r. When trustProxy is set the
// left-most X-Forwarded-For entry (or X-Real-IP) wins over the socket address.
func MetaFromRequest(r *http.Request, trustProxy bool) RequestMeta {
	return RequestMeta{
		IP:             clientIP(r, trustProxy),
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Referrer:       r.Referer(),
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xr) != nil {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Extractor derives routing.VisitorContext values from request metadata.
type Extractor struct {
	geo         geoip.Resolver
	timeout     time.Duration
	defaultZone *time.Location
	now         func() time.Time

	zones sync.Map // map[string]*time.Location
}

// NewExtractor returns an Extractor. geo may be nil, in which case country is
// always unknown and local time uses defaultZone.
func NewExtractor(geo geoip.Resolver, timeout time.Duration, defaultZone *time.Location) *Extractor {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &Extractor{geo: geo, timeout: timeout, defaultZone: defaultZone, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract never fails: anything that cannot be resolved is left empty.
func (e *Extractor) Extract(ctx context.Context, meta RequestMeta) routing.VisitorContext {
	return e.ExtractAt(ctx, meta, e.now())
}

// ExtractAt is Extract with LocalTime taken from at instead of the clock,
// for visits that are enriched after the fact.
func (e *Extractor) ExtractAt(ctx context.Context, meta RequestMeta, at time.Time) routing.VisitorContext {
	agent := parser.ParseUserAgent(meta.UserAgent)
	vc := routing.VisitorContext{
		Language: PrimaryLanguage(meta.AcceptLanguage),
		OS:       agent.OS,
		Device:   agent.Device,
		Browser:  agent.Browser,
	}

	zone := e.defaultZone
	if loc := e.locate(ctx, meta.IP); loc != nil {
		vc.Country = loc.Country
		if z := e.zone(loc.TimeZone); z != nil {
			zone = z
		}
	}
	vc.LocalTime = at.In(zone).Format("15:04")
	return vc
}

func (e *Extractor) locate(ctx context.Context, ip string) *geoip.Location {
	if e.geo == nil || ip == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		loc *geoip.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := e.geo.Lookup(ctx, ip)
		ch <- result{loc, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			telemetry.GeoLookupFailures.Inc()
			log.Debug().Err(res.err).Str("ip", ip).Msg("geo lookup failed")
			return nil
		}
		return res.loc
	case <-ctx.Done():
		telemetry.GeoLookupFailures.Inc()
		log.Debug().Str("ip", ip).Dur("timeout", e.timeout).Msg("geo lookup timed out")
		return nil
	}
}

func (e *Extractor) zone(name string) *time.Location {
	if name == "" {
		return nil
	}
	if z, ok := e.zones.Load(name); ok {
		return z.(*time.Location)
	}
	z, err := time.LoadLocation(name)
	if err != nil {
		log.Debug().Err(err).Str("zone", name).Msg("unknown time zone")
		return nil
	}
	e.zones.Store(name, z)
	return z
}

// PrimaryLanguage returns the lower-case primary subtag of the highest
// weighted Accept-Language entry, or "" when none is usable.
func PrimaryLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	for _, tag := range tags {
		base, conf := tag.Base()
		if conf == language.No || tag == language.Und {
			continue
		}
		if b := strings.ToLower(base.String()); b != "mul" && b != "und" {
			return b
		}
	}
	return ""
}
