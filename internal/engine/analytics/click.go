package analytics

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkroute/internal/engine/routing"
	"linkroute/internal/engine/visitor"
)

// Click is one recorded visit.
type Click struct {
	ID             string `json:"id"`
	LinkID         string `json:"linkId"`
	Alias          string `json:"alias"`
	Timestamp      int64  `json:"timestamp"` // unix millis
	IPAddress      string `json:"ipAddress"`
	UserAgent      string `json:"userAgent"`
	Country        string `json:"country"`
	Language       string `json:"language"`
	OS             string `json:"os"`
	Device         string `json:"device"`
	Browser        string `json:"browser"`
	LocalTime      string `json:"localTime"`
	Referrer       string `json:"referrer"`
	ReferrerDomain string `json:"referrerDomain"`
	DestinationURL string `json:"destinationUrl"`
	MatchedRuleID  string `json:"matchedRuleId,omitempty"`

	// meta is kept until the recorder derives the visitor fields.
	meta *visitor.RequestMeta
}

// NewClick assembles a click from the request it was derived from. A nil vc
// leaves the visitor fields to be derived by the Recorder.
func NewClick(linkID, alias, destination string, matched routing.RuleID, meta visitor.RequestMeta, vc *routing.VisitorContext, at time.Time) *Click {
	c := &Click{
		ID:             uuid.NewString(),
		LinkID:         linkID,
		Alias:          alias,
		Timestamp:      at.UnixMilli(),
		IPAddress:      meta.IP,
		UserAgent:      meta.UserAgent,
		Referrer:       meta.Referrer,
		ReferrerDomain: ReferrerDomain(meta.Referrer),
		DestinationURL: destination,
		MatchedRuleID:  string(matched),
	}
	if vc == nil {
		c.meta = &meta
	} else {
		c.setVisitor(*vc)
	}
	return c
}

func (c *Click) setVisitor(vc routing.VisitorContext) {
	c.Country = vc.Country
	c.Language = vc.Language
	c.OS = vc.OS
	c.Device = vc.Device
	c.Browser = vc.Browser
	c.LocalTime = vc.LocalTime
}

// ReferrerDomain returns the lower-cased host of referrer without a leading www.
func ReferrerDomain(referrer string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
