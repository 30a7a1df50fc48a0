package links

import (
	"errors"
	"time"

	"linkroute/internal/engine/routing"
)

var (
	ErrNotFound        = errors.New("link not found")
	ErrVersionConflict = errors.New("link was modified concurrently")
	ErrAliasTaken      = errors.New("alias already taken")
	ErrInvalidAlias    = errors.New("invalid alias format")
	ErrInvalidLink     = errors.New("invalid link")
	ErrForbidden       = errors.New("not the owner of this link")
)

const (
	KindURL  = "url"
	KindQR   = "qr"
	KindText = "text"

	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"

	RedirectTemporary = "temporary" // 302
	RedirectPermanent = "permanent" // 301
)

type Link struct {
	ID                       string             `json:"id"`
	Alias                    string             `json:"alias"`
	Kind                     string             `json:"kind" validate:"oneof=url qr text"`
	LongURL                  string             `json:"longUrl" validate:"omitempty,http_url,max=2048"`
	TextContent              string             `json:"textContent,omitempty" validate:"max=10000"`
	Title                    string             `json:"title" validate:"max=200"`
	OwnerID                  string             `json:"ownerId"`
	RedirectType             string             `json:"redirectType" validate:"oneof=temporary permanent"`
	Status                   string             `json:"status" validate:"oneof=active paused archived"`
	PausedMessage            string             `json:"pausedMessage,omitempty" validate:"max=500"`
	Restricted               bool               `json:"restricted"`
	RestrictionReason        string             `json:"restrictionReason,omitempty" validate:"max=500"`
	ScheduledRedirect        *ScheduledRedirect `json:"scheduledRedirect,omitempty"`
	Expiration               *Expiration        `json:"expiration,omitempty"`
	SplashScreen             *SplashScreen      `json:"splashScreen,omitempty"`
	PasswordHash             string             `json:"-"`
	HasPassword              bool               `json:"hasPassword"`
	MultipleDestinationRules []routing.Rule     `json:"multipleDestinationRules"`
	ClickCount               int64              `json:"clickCount"`
	LastClickAt              *int64             `json:"lastClickAt,omitempty"`
	CreatedAt                int64              `json:"createdAt"`
	UpdatedAt                int64              `json:"updatedAt"`
	Version                  int64              `json:"version"`
}

// ScheduledRedirect limits when a link is live. Zero times are open ends.
type ScheduledRedirect struct {
	Enabled   bool       `json:"enabled"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Message   string     `json:"message,omitempty" validate:"max=500"`
}

type Expiration struct {
	Enabled         bool       `json:"enabled"`
	ExpireAt        *time.Time `json:"expireAt,omitempty"`
	ExpiredRedirect string     `json:"expiredRedirect,omitempty" validate:"omitempty,http_url"`
}

type SplashScreen struct {
	Enabled      bool   `json:"enabled"`
	DelaySeconds int    `json:"delaySeconds" validate:"min=0,max=30"`
	Title        string `json:"title,omitempty" validate:"max=200"`
	Message      string `json:"message,omitempty" validate:"max=500"`
}

// DefaultDestination is where visitors go when no rule matches.
func (l *Link) DefaultDestination() string {
	return l.LongURL
}

// Public returns a copy safe to hand to anonymous callers. Destinations of a
// password protected link stay hidden until the visitor has unlocked it.
func (l *Link) Public(unlocked bool) *Link {
	cp := *l
	cp.PasswordHash = ""
	cp.OwnerID = ""
	if cp.HasPassword && !unlocked {
		cp.LongURL = ""
		cp.TextContent = ""
		cp.MultipleDestinationRules = nil
	}
	return &cp
}
