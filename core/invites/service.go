package invites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"props-bible/core/auth"
	"props-bible/core/jobroles"
	"props-bible/core/mailer"
	"props-bible/core/rbac"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"

	"github.com/gofrs/uuid/v5"
)

var (
	ErrInvalidToken    = errors.New("invitation token is invalid")
	ErrExpired         = errors.New("invitation expired")
	ErrRevoked         = errors.New("invitation revoked")
	ErrAlreadyAccepted = errors.New("invitation already accepted")
	ErrAlreadyMember   = errors.New("user is already a member of the show")
	ErrRateLimited     = errors.New("too many invitations")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrUnknownRole     = errors.New("unknown job role")
	ErrShowNotFound    = errors.New("show not found")
	ErrEmailMismatch   = errors.New("invitation was sent to another email")
)

type Service struct {
	invitations store.InvitationsStore
	shows       store.ShowsStore
	roles       store.RolesStore
	policy      *rbac.Policy
	limits      *subscription.Service
	signer      *Signer
	limiter     *SendLimiter
	mail        mailer.Sender
	publicURL   string
	logger      *utils.Logger
	now         func() time.Time
}

type Deps struct {
	Invitations store.InvitationsStore
	Shows       store.ShowsStore
	Roles       store.RolesStore
	Policy      *rbac.Policy
	Limits      *subscription.Service
	Signer      *Signer
	Limiter     *SendLimiter
	Mailer      mailer.Sender
	PublicURL   string
	Logger      *utils.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		invitations: d.Invitations,
		shows:       d.Shows,
		roles:       d.Roles,
		policy:      d.Policy,
		limits:      d.Limits,
		signer:      d.Signer,
		limiter:     d.Limiter,
		mail:        d.Mailer,
		publicURL:   strings.TrimRight(d.PublicURL, "/"),
		logger:      d.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Store() store.InvitationsStore {
	return s.invitations
}

func (s *Service) lookupRole(ctx context.Context, roleID string) (*jobroles.Role, error) {
	if r, ok := jobroles.Get(roleID); ok {
		return &r, nil
	}
	return s.roles.Get(ctx, roleID)
}

func (s *Service) roleName(ctx context.Context, roleID string) (string, error) {
	if r, ok := jobroles.Get(roleID); ok {
		return r.Name, nil
	}
	r, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", ErrUnknownRole
	}
	return r.Name, nil
}

// Link builds the acceptance URL carried in the email.
func (s *Service) Link(token string) string {
	base := s.publicURL
	return base + "/invite?token=" + url.QueryEscape(token)
}

// Create stores a pending invitation and mails the link. The returned token is only shown once.
// The grantor must outrank the offered role.
func (s *Service) Create(ctx context.Context, inviter *store.User, grantor auth.Grantor, showID int64, email, roleID string) (*store.Invitation, string, error) {
	email, err := utils.NormalizeEmail(email)
	if err != nil || email == "" {
		return nil, "", ErrInvalidEmail
	}
	roleID = strings.ToLower(strings.TrimSpace(roleID))
	if roleID == "" {
		roleID = jobroles.DefaultRoleID
	}
	roleName, err := s.roleName(ctx, roleID)
	if err != nil {
		return nil, "", err
	}
	if err := auth.CheckGrant(ctx, s.lookupRole, s.policy, grantor, roleID); err != nil {
		return nil, "", err
	}
	show, err := s.shows.Get(ctx, showID)
	if err != nil {
		return nil, "", err
	}
	if show == nil {
		return nil, "", ErrShowNotFound
	}
	now := s.now()
	if s.limiter != nil && !s.limiter.Allow(inviter.ID, now) {
		return nil, "", ErrRateLimited
	}
	tid, err := uuid.NewV7()
	if err != nil {
		return nil, "", err
	}
	token, exp, err := s.signer.Issue(tid.String(), showID, email, roleID, now)
	if err != nil {
		return nil, "", err
	}
	inv := &store.Invitation{
		TokenID:   tid.String(),
		ShowID:    showID,
		Email:     email,
		RoleID:    roleID,
		InvitedBy: inviter.ID,
		ExpiresAt: exp,
	}
	if _, err := s.invitations.Create(ctx, inv); err != nil {
		return nil, "", err
	}
	if s.mail != nil {
		inviterName := inviter.FullName
		if inviterName == "" {
			inviterName = inviter.Username
		}
		subject, text, html := mailer.InvitationMessage(mailer.Invitation{
			ShowName: show.Name, Inviter: inviterName, RoleName: roleName, Link: s.Link(token),
		})
		if err := s.mail.Send(ctx, email, subject, text, html); err != nil {
			s.logger.Errorf("invitation %d mail: %v", inv.ID, err)
		}
	}
	return inv, token, nil
}

func (s *Service) Revoke(ctx context.Context, id int64) error {
	err := s.invitations.Revoke(ctx, id)
	if errors.Is(err, store.ErrVersionConflict) {
		inv, gerr := s.invitations.Get(ctx, id)
		if gerr != nil {
			return gerr
		}
		if inv == nil {
			return ErrInvalidToken
		}
		return statusError(inv.Status)
	}
	return err
}

func statusError(status string) error {
	switch status {
	case store.InvitationAccepted:
		return ErrAlreadyAccepted
	case store.InvitationRevoked:
		return ErrRevoked
	default:
		return ErrInvalidToken
	}
}

// Accept joins user to the invited show. The show owner's collaborators limit is taken here,
// not when the invitation is sent.
func (s *Service) Accept(ctx context.Context, token string, user *store.User) (*store.ShowMember, error) {
	now := s.now()
	claims, err := s.signer.Parse(token, now)
	if err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByToken(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.ShowID != claims.ShowID {
		return nil, ErrInvalidToken
	}
	if inv.Status != store.InvitationPending {
		return nil, statusError(inv.Status)
	}
	if now.After(inv.ExpiresAt) {
		return nil, ErrExpired
	}
	if user.Email != "" && !strings.EqualFold(strings.TrimSpace(user.Email), inv.Email) {
		return nil, ErrEmailMismatch
	}
	show, err := s.shows.Get(ctx, inv.ShowID)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, ErrShowNotFound
	}
	existing, err := s.shows.Member(ctx, show.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}
	if _, err := s.roleName(ctx, inv.RoleID); err != nil {
		return nil, err
	}
	if _, err := s.limits.Acquire(ctx, show.OwnerID, subscription.ResourceCollaborators, show.ID); err != nil {
		return nil, err
	}
	m := &store.ShowMember{ShowID: show.ID, UserID: user.ID, RoleID: inv.RoleID, AddedBy: inv.InvitedBy}
	if _, err := s.invitations.Accept(ctx, inv.ID, m, now); err != nil {
		s.limits.ReleaseQuiet(ctx, show.OwnerID, subscription.ResourceCollaborators, show.ID)
		switch {
		case errors.Is(err, store.ErrVersionConflict):
			return nil, ErrAlreadyAccepted
		case errors.Is(err, store.ErrDuplicate):
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	m.Username = user.Username
	m.FullName = user.FullName
	return m, nil
}
