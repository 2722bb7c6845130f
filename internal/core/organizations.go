package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// MaxDisplayNameLength is the longest accepted organization display name, in
// characters.
const MaxDisplayNameLength = 100

// NormalizeSettings validates settings and returns them in canonical form:
// trimmed display name, allowed domains lowercased, converted to ASCII and
// de-duplicated in their original order.
func NormalizeSettings(in OrganizationSettings) (OrganizationSettings, error) {
	out := in
	out.DisplayName = strings.TrimSpace(in.DisplayName)
	if utf8.RuneCountInString(out.DisplayName) > MaxDisplayNameLength {
		return OrganizationSettings{}, fmt.Errorf("%w: display name too long", ErrInvalidSettings)
	}
	if in.AIMonthlyTokenLimit < 0 {
		return OrganizationSettings{}, fmt.Errorf("%w: token limit must not be negative", ErrInvalidSettings)
	}

	out.AllowedDomains = nil
	seen := make(map[string]bool, len(in.AllowedDomains))
	for _, raw := range in.AllowedDomains {
		domain, err := normalizeDomain(raw)
		if err != nil {
			return OrganizationSettings{}, err
		}
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		out.AllowedDomains = append(out.AllowedDomains, domain)
	}
	return out, nil
}

func normalizeDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if d == "" {
		return "", nil
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil || len(ascii) > 253 || !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("%w: invalid domain %q", ErrInvalidSettings, raw)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" || len(label) > 63 {
			return "", fmt.Errorf("%w: invalid domain %q", ErrInvalidSettings, raw)
		}
	}
	return ascii, nil
}

// UpdateOrganizationSettings replaces an organization's settings and records
// the old and new values in the audit log.
func (s *Service) UpdateOrganizationSettings(ctx context.Context, id string, settings OrganizationSettings) (*Organization, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	settings, err := NormalizeSettings(settings)
	if err != nil {
		return nil, err
	}

	var org Organization
	err = s.store.InTx(ctx, func(tx Store) error {
		var err error
		org, err = tx.GetOrganization(ctx, id)
		if err != nil {
			return err
		}
		old := org.Settings
		if err := tx.UpdateOrganizationSettings(ctx, id, settings); err != nil {
			return err
		}
		org.Settings = settings

		_, err = s.audit.withStore(tx).LogSettingsUpdate(ctx, SettingsAuditEntry{
			BaseAuditEntry: BaseAuditEntry{OrganizationID: id},
			Old:            old,
			New:            settings,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update organization settings: %w", err)
	}

	slog.Info("organization settings updated", "organization_id", id)
	return &org, nil
}
