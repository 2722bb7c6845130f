package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// CreateInvitationParams is the input of CreateInvitation.
type CreateInvitationParams struct {
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email"`
	Role           Role   `json:"role"`
}

// normalizeEmail validates a bare address and returns it lowercased.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is a required field", ErrInvalidInvitation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", ErrInvalidInvitation, raw)
	}
	return strings.ToLower(email), nil
}

func emailDomain(email string) string {
	return email[strings.LastIndex(email, "@")+1:]
}

// CreateInvitation invites an email address to an organization. The address
// must be valid and, when the organization restricts domains, on an allowed
// domain. At most one unexpired pending invitation may exist per
// organization and address.
func (s *Service) CreateInvitation(ctx context.Context, params CreateInvitationParams) (*Invitation, error) {
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if !params.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", ErrInvalidInvitation, params.Role)
	}
	if _, err := uuid.Parse(params.OrganizationID); err != nil {
		return nil, fmt.Errorf("%w: organization is a required field", ErrInvalidInvitation)
	}

	now := s.now().UTC()
	inv := Invitation{
		ID:             uuid.NewString(),
		OrganizationID: params.OrganizationID,
		Email:          email,
		Role:           params.Role,
		Status:         InvitePending,
		InvitedBy:      invitedBy(ctx),
		Token:          uuid.NewString(),
		ExpiresAt:      now.Add(s.cfg.InviteTTL),
		CreatedAt:      now,
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		org, err := tx.GetOrganization(ctx, params.OrganizationID)
		if err != nil {
			return err
		}
		if allowed := org.Settings.AllowedDomains; len(allowed) > 0 && !slices.Contains(allowed, emailDomain(email)) {
			return fmt.Errorf("%w: email domain not allowed for %s", ErrInvalidInvitation, org.Label())
		}
		inv.OrganizationName = org.Name

		if _, exists, err := tx.FindPendingInvitation(ctx, org.ID, email, now); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("invite %s: %w", email, ErrInvitationExists)
		}

		if err := tx.InsertInvitation(ctx, inv); err != nil {
			return err
		}

		_, err = s.audit.withStore(tx).LogInvitationCreate(ctx, InvitationAuditEntry{
			BaseAuditEntry: BaseAuditEntry{OrganizationID: org.ID},
			InvitationID:   inv.ID,
			Email:          inv.Email,
			Role:           inv.Role,
			ExpiresAt:      inv.ExpiresAt,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	slog.Info("invitation created",
		"invitation_id", inv.ID,
		"organization_id", inv.OrganizationID,
		"role", inv.Role,
	)
	return &inv, nil
}

// RevokeInvitation revokes a pending invitation. Accepted, revoked and
// expired invitations are left untouched and ErrInvitationNotPending is
// returned.
func (s *Service) RevokeInvitation(ctx context.Context, id string) (*Invitation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}

	now := s.now().UTC()
	var inv Invitation
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		inv, err = tx.GetInvitation(ctx, id)
		if err != nil {
			return err
		}
		if status := inv.EffectiveStatus(now); status != InvitePending {
			return fmt.Errorf("invitation %s is %s: %w", id, status, ErrInvitationNotPending)
		}
		if err := tx.SetInvitationStatus(ctx, id, InviteRevoked, now); err != nil {
			return err
		}
		inv.Status = InviteRevoked
		inv.RevokedAt = &now

		_, err = s.audit.withStore(tx).LogInvitationRevoke(ctx, InvitationAuditEntry{
			BaseAuditEntry: BaseAuditEntry{OrganizationID: inv.OrganizationID},
			InvitationID:   inv.ID,
			Email:          inv.Email,
			Role:           inv.Role,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("revoke invitation: %w", err)
	}

	slog.Info("invitation revoked", "invitation_id", inv.ID, "organization_id", inv.OrganizationID)
	return &inv, nil
}

func invitedBy(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	if actor.Email != "" {
		return actor.Email
	}
	return actor.ID
}
