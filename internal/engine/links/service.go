package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"linkroute/internal/engine/routing"
	"linkroute/internal/platform/audit"
)

const (
	ruleIDPrefix      = "rule_"
	maxPasswordLength = 72
	maxUpdateAttempts = 3
)

// LinkInput is a create or partial update request. Nil fields are left
// unchanged on update. A non-nil empty MultipleDestinationRules clears the
// rule list.
type LinkInput struct {
	Alias                    *string            `json:"alias"`
	Kind                     *string            `json:"kind"`
	LongURL                  *string            `json:"longUrl"`
	TextContent              *string            `json:"textContent"`
	Title                    *string            `json:"title"`
	RedirectType             *string            `json:"redirectType"`
	Status                   *string            `json:"status"`
	PausedMessage            *string            `json:"pausedMessage"`
	ScheduledRedirect        *ScheduledRedirect `json:"scheduledRedirect"`
	Expiration               *Expiration        `json:"expiration"`
	SplashScreen             *SplashScreen      `json:"splashScreen"`
	Password                 *string            `json:"password"`
	MultipleDestinationRules []routing.Rule     `json:"multipleDestinationRules"`
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID    string
	Admin bool
}

func (a Actor) canModify(link *Link) bool {
	return a.Admin || (a.ID != "" && a.ID == link.OwnerID)
}

// Invalidator is told about every alias whose stored link changed.
type Invalidator interface {
	Invalidate(ctx context.Context, alias string)
}

// Auditor records who changed which link.
type Auditor interface {
	Log(ctx context.Context, actorID, action, resourceID string, metadata map[string]interface{})
}

type Service struct {
	repo        *Repository
	invalidator Invalidator
	auditor     Auditor
	now         func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithInvalidator registers the cache that must forget changed aliases.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithAuditor records every successful mutation.
func (s *Service) WithAuditor(a Auditor) *Service {
	s.auditor = a
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateLink(ctx context.Context, ownerID string, in *LinkInput) (*Link, error) {
	if ownerID == "" {
		return nil, ErrForbidden
	}

	now := s.now().Unix()
	link := &Link{
		ID:                       uuid.New().String(),
		Kind:                     KindURL,
		OwnerID:                  ownerID,
		RedirectType:             RedirectTemporary,
		Status:                   StatusActive,
		MultipleDestinationRules: []routing.Rule{},
		CreatedAt:                now,
		UpdatedAt:                now,
		Version:                  1,
	}
	if err := applyInput(link, in); err != nil {
		return nil, err
	}
	if err := ValidateLink(link); err != nil {
		return nil, err
	}

	custom := ""
	if in.Alias != nil {
		custom = strings.TrimSpace(*in.Alias)
	}
	alias, err := GenerateAlias(ctx, custom, s.repo)
	if err != nil {
		return nil, err
	}
	link.Alias = alias

	if err := setPassword(link, in.Password); err != nil {
		return nil, err
	}
	assignRuleIDs(link.MultipleDestinationRules)

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, err
	}

	s.record(ctx, ownerID, audit.ActionCreate, link.ID, map[string]interface{}{"alias": link.Alias})
	log.Info().Str("link_id", link.ID).Str("alias", link.Alias).Int("rules", len(link.MultipleDestinationRules)).Msg("link created")
	return link, nil
}

// UpdateLink applies a partial update. When expectedVersion is set the write
// only succeeds against that version; otherwise the latest stored version is
// overwritten.
func (s *Service) UpdateLink(ctx context.Context, id string, actor Actor, in *LinkInput, expectedVersion *int64) (*Link, error) {
	for attempt := 1; ; attempt++ {
		link, oldAlias, err := s.prepareUpdate(ctx, id, actor, in)
		if err != nil {
			return nil, err
		}

		version := link.Version
		if expectedVersion != nil {
			if *expectedVersion != link.Version {
				return nil, ErrVersionConflict
			}
			version = *expectedVersion
		}

		err = s.repo.Update(ctx, link, version)
		if errors.Is(err, ErrVersionConflict) && expectedVersion == nil && attempt < maxUpdateAttempts {
			log.Debug().Str("link_id", id).Int("attempt", attempt).Msg("concurrent link update, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidate(ctx, oldAlias)
		if link.Alias != oldAlias {
			s.invalidate(ctx, link.Alias)
		}
		s.record(ctx, actor.ID, audit.ActionUpdate, link.ID, map[string]interface{}{
			"alias":   link.Alias,
			"version": link.Version,
			"rules":   len(link.MultipleDestinationRules),
		})
		return link, nil
	}
}

func (s *Service) prepareUpdate(ctx context.Context, id string, actor Actor, in *LinkInput) (*Link, string, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !actor.canModify(link) {
		return nil, "", ErrForbidden
	}
	if link.Status == StatusArchived {
		return nil, "", ErrNotFound
	}
	oldAlias := link.Alias

	if in.Status != nil && *in.Status == StatusArchived {
		return nil, "", &ValidationError{Problems: []string{"status cannot be set to archived, delete the link instead"}}
	}
	if err := applyInput(link, in); err != nil {
		return nil, "", err
	}

	if in.Alias != nil {
		alias := strings.TrimSpace(*in.Alias)
		if alias != oldAlias {
			if _, err := GenerateAlias(ctx, alias, s.repo); err != nil {
				return nil, "", err
			}
			link.Alias = alias
		}
	}

	if err := ValidateLink(link); err != nil {
		return nil, "", err
	}
	if err := setPassword(link, in.Password); err != nil {
		return nil, "", err
	}
	assignRuleIDs(link.MultipleDestinationRules)
	link.UpdatedAt = s.now().Unix()

	return link, oldAlias, nil
}

func (s *Service) GetLink(ctx context.Context, id string) (*Link, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByAlias returns the live link behind alias. Archived links are not found.
func (s *Service) GetByAlias(ctx context.Context, alias string) (*Link, error) {
	link, err := s.repo.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	if link.Status == StatusArchived {
		return nil, ErrNotFound
	}
	return link, nil
}

func (s *Service) ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]*Link, error) {
	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

func (s *Service) ArchiveLink(ctx context.Context, id string, actor Actor) error {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canModify(link) {
		return ErrForbidden
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, link.Alias)
	s.record(ctx, actor.ID, audit.ActionArchive, id, map[string]interface{}{"alias": link.Alias})
	log.Info().Str("link_id", id).Str("alias", link.Alias).Msg("link archived")
	return nil
}

// SetRestriction flags or clears a link for moderation. Only admins may call it.
func (s *Service) SetRestriction(ctx context.Context, id string, actor Actor, restricted bool, reason string) (*Link, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if err := s.repo.SetRestriction(ctx, id, restricted, reason); err != nil {
		return nil, err
	}
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, link.Alias)
	s.record(ctx, actor.ID, audit.ActionRestriction, id, map[string]interface{}{"restricted": restricted, "reason": reason})
	log.Warn().Str("link_id", id).Bool("restricted", restricted).Str("reason", reason).Msg("link restriction changed")
	return link, nil
}

// VerifyPassword reports whether password unlocks link.
func (s *Service) VerifyPassword(link *Link, password string) bool {
	return VerifyPassword(link, password)
}

func VerifyPassword(link *Link, password string) bool {
	if link.PasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)) == nil
}

func (s *Service) record(ctx context.Context, actorID, action, linkID string, metadata map[string]interface{}) {
	if s.auditor != nil {
		s.auditor.Log(ctx, actorID, action, linkID, metadata)
	}
}

func (s *Service) invalidate(ctx context.Context, alias string) {
	if s.invalidator != nil && alias != "" {
		s.invalidator.Invalidate(ctx, alias)
	}
}

func applyInput(link *Link, in *LinkInput) error {
	if in == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidLink)
	}
	if in.Kind != nil {
		link.Kind = strings.TrimSpace(*in.Kind)
	}
	if in.LongURL != nil {
		link.LongURL = strings.TrimSpace(*in.LongURL)
	}
	if in.TextContent != nil {
		link.TextContent = *in.TextContent
	}
	if in.Title != nil {
		link.Title = strings.TrimSpace(*in.Title)
	}
	if in.RedirectType != nil {
		link.RedirectType = *in.RedirectType
	}
	if in.Status != nil {
		link.Status = *in.Status
	}
	if in.PausedMessage != nil {
		link.PausedMessage = *in.PausedMessage
	}
	if in.ScheduledRedirect != nil {
		link.ScheduledRedirect = in.ScheduledRedirect
	}
	if in.Expiration != nil {
		link.Expiration = in.Expiration
	}
	if in.SplashScreen != nil {
		link.SplashScreen = in.SplashScreen
	}
	if in.MultipleDestinationRules != nil {
		link.MultipleDestinationRules = in.MultipleDestinationRules
	}
	return nil
}

// setPassword hashes a new password. An empty password removes protection.
func setPassword(link *Link, password *string) error {
	if password == nil {
		return nil
	}
	if *password == "" {
		link.PasswordHash = ""
		link.HasPassword = false
		return nil
	}
	if len(*password) > maxPasswordLength {
		return &ValidationError{Problems: []string{fmt.Sprintf("password must be at most %d bytes", maxPasswordLength)}}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	link.PasswordHash = string(hash)
	link.HasPassword = true
	return nil
}

// assignRuleIDs replaces client generated rule ids with durable ones.
func assignRuleIDs(rules []routing.Rule) {
	for i := range rules {
		if !strings.HasPrefix(string(rules[i].ID), ruleIDPrefix) {
			rules[i].ID = routing.RuleID(ruleIDPrefix + uuid.NewString())
		}
	}
}
