// Package coretest provides an in-memory core.Store for tests.
package coretest

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/console/internal/core"
)

// MemStore is a core.Store kept in memory. InTx restores the previous state
// when fn fails, so rollback behavior can be asserted.
type MemStore struct {
	mu      sync.Mutex
	orgs    map[string]core.Organization
	invites map[string]core.Invitation
	audit   []core.AuditEntry
	usage   []core.UsageLog

	// Err, when set, is returned by every read and write.
	Err error
	// AuditErr, when set, is returned by InsertAuditEntry.
	AuditErr error
}

var _ core.Store = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		orgs:    make(map[string]core.Organization),
		invites: make(map[string]core.Invitation),
	}
}

// AddOrganization seeds an organization.
func (m *MemStore) AddOrganization(o core.Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgs[o.ID] = o
}

// AddInvitation seeds an invitation.
func (m *MemStore) AddInvitation(i core.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[i.ID] = i
}

// AddUsage seeds usage rows.
func (m *MemStore) AddUsage(rows ...core.UsageLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, rows...)
}

// AddAuditEntries seeds audit entries.
func (m *MemStore) AddAuditEntries(entries ...core.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entries...)
}

// AuditEntries returns a copy of the stored audit log in insertion order.
func (m *MemStore) AuditEntries() []core.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.audit)
}

// Invitation returns the stored invitation with id.
func (m *MemStore) Invitation(id string) (core.Invitation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	return inv, ok
}

// InvitationCount returns the number of stored invitations.
func (m *MemStore) InvitationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invites)
}

// UsageCount returns the number of stored usage rows.
func (m *MemStore) UsageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usage)
}

type snapshot struct {
	orgs    map[string]core.Organization
	invites map[string]core.Invitation
	audit   []core.AuditEntry
	usage   []core.UsageLog
}

// InTx implements core.Store.
func (m *MemStore) InTx(ctx context.Context, fn func(core.Store) error) error {
	m.mu.Lock()
	snap := snapshot{
		orgs:    maps.Clone(m.orgs),
		invites: maps.Clone(m.invites),
		audit:   slices.Clone(m.audit),
		usage:   slices.Clone(m.usage),
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.orgs, m.invites, m.audit, m.usage = snap.orgs, snap.invites, snap.audit, snap.usage
		m.mu.Unlock()
		return err
	}
	return nil
}

func newestFirst[T any](rows []T, created func(T) time.Time, limit int) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int { return created(b).Compare(created(a)) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ListOrganizations implements core.Store.
func (m *MemStore) ListOrganizations(_ context.Context, limit int) ([]core.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	orgs := slices.SortedFunc(maps.Values(m.orgs), func(a, b core.Organization) int { return cmp.Compare(a.ID, b.ID) })
	return newestFirst(orgs, func(o core.Organization) time.Time { return o.CreatedAt }, limit), nil
}

// GetOrganization implements core.Store.
func (m *MemStore) GetOrganization(_ context.Context, id string) (core.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return core.Organization{}, m.Err
	}
	o, ok := m.orgs[id]
	if !ok {
		return core.Organization{}, fmt.Errorf("organization %s: %w", id, core.ErrNotFound)
	}
	return o, nil
}

// UpdateOrganizationSettings implements core.Store.
func (m *MemStore) UpdateOrganizationSettings(_ context.Context, id string, settings core.OrganizationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	o, ok := m.orgs[id]
	if !ok {
		return fmt.Errorf("organization %s: %w", id, core.ErrNotFound)
	}
	o.Settings = settings
	m.orgs[id] = o
	return nil
}

func (m *MemStore) withOrgName(inv core.Invitation) core.Invitation {
	if o, ok := m.orgs[inv.OrganizationID]; ok {
		inv.OrganizationName = o.Name
	}
	return inv
}

// ListInvitations implements core.Store.
func (m *MemStore) ListInvitations(_ context.Context, limit int) ([]core.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	invs := make([]core.Invitation, 0, len(m.invites))
	for _, inv := range m.invites {
		invs = append(invs, m.withOrgName(inv))
	}
	slices.SortFunc(invs, func(a, b core.Invitation) int { return cmp.Compare(a.ID, b.ID) })
	return newestFirst(invs, func(i core.Invitation) time.Time { return i.CreatedAt }, limit), nil
}

// GetInvitation implements core.Store.
func (m *MemStore) GetInvitation(_ context.Context, id string) (core.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return core.Invitation{}, m.Err
	}
	inv, ok := m.invites[id]
	if !ok {
		return core.Invitation{}, fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	return m.withOrgName(inv), nil
}

// FindPendingInvitation implements core.Store.
func (m *MemStore) FindPendingInvitation(_ context.Context, orgID, email string, now time.Time) (core.Invitation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return core.Invitation{}, false, m.Err
	}
	for _, inv := range m.invites {
		if inv.OrganizationID == orgID && strings.EqualFold(inv.Email, email) &&
			inv.Status == core.InvitePending && now.Before(inv.ExpiresAt) {
			return m.withOrgName(inv), true, nil
		}
	}
	return core.Invitation{}, false, nil
}

// InsertInvitation implements core.Store.
func (m *MemStore) InsertInvitation(_ context.Context, inv core.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.orgs[inv.OrganizationID]; !ok {
		return fmt.Errorf("insert invitation: violates foreign key constraint")
	}
	if _, dup := m.invites[inv.ID]; dup {
		return fmt.Errorf("insert invitation: duplicate key value")
	}
	m.invites[inv.ID] = inv
	return nil
}

// SetInvitationStatus implements core.Store.
func (m *MemStore) SetInvitationStatus(_ context.Context, id string, status core.InvitationStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	inv, ok := m.invites[id]
	if !ok {
		return fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	inv.Status = status
	switch status {
	case core.InviteRevoked:
		inv.RevokedAt = &at
	case core.InviteAccepted:
		inv.AcceptedAt = &at
	}
	m.invites[id] = inv
	return nil
}

// ExpireInvitations implements core.Store.
func (m *MemStore) ExpireInvitations(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	var n int64
	for id, inv := range m.invites {
		if inv.Status == core.InvitePending && !now.Before(inv.ExpiresAt) {
			inv.Status = core.InviteExpired
			m.invites[id] = inv
			n++
		}
	}
	return n, nil
}

// InsertAuditEntry implements core.Store.
func (m *MemStore) InsertAuditEntry(_ context.Context, e core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.AuditErr != nil {
		return m.AuditErr
	}
	m.audit = append(m.audit, e)
	return nil
}

// ListAuditLog implements core.Store.
func (m *MemStore) ListAuditLog(_ context.Context, opts core.AuditLogOptions) ([]core.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []core.AuditEntry
	for _, e := range m.audit {
		switch {
		case opts.Resource != "" && e.Resource != opts.Resource,
			opts.Action != "" && e.Action != opts.Action,
			opts.Severity != "" && e.Severity != opts.Severity,
			opts.OrganizationID != "" && e.OrganizationID != opts.OrganizationID,
			!opts.StartTime.IsZero() && e.CreatedAt.Before(opts.StartTime),
			!opts.EndTime.IsZero() && !e.CreatedAt.Before(opts.EndTime):
			continue
		}
		out = append(out, e)
	}
	return newestFirst(out, func(e core.AuditEntry) time.Time { return e.CreatedAt }, opts.Limit), nil
}

// GetAuditEntry implements core.Store.
func (m *MemStore) GetAuditEntry(_ context.Context, id string) (core.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return core.AuditEntry{}, m.Err
	}
	for _, e := range m.audit {
		if e.ID == id {
			return e, nil
		}
	}
	return core.AuditEntry{}, fmt.Errorf("audit entry %s: %w", id, core.ErrNotFound)
}

// PurgeAuditLog implements core.Store.
func (m *MemStore) PurgeAuditLog(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := len(m.audit)
	m.audit = slices.DeleteFunc(m.audit, func(e core.AuditEntry) bool { return e.CreatedAt.Before(before) })
	return int64(n - len(m.audit)), nil
}

// ListUsage implements core.Store.
func (m *MemStore) ListUsage(_ context.Context, limit int) ([]core.UsageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rows := make([]core.UsageLog, len(m.usage))
	for i, u := range m.usage {
		if o, ok := m.orgs[u.OrganizationID]; ok {
			u.OrganizationName = o.Name
		}
		rows[i] = u
	}
	return newestFirst(rows, func(u core.UsageLog) time.Time { return u.CreatedAt }, limit), nil
}

// PurgeUsage implements core.Store.
func (m *MemStore) PurgeUsage(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := len(m.usage)
	m.usage = slices.DeleteFunc(m.usage, func(u core.UsageLog) bool { return u.CreatedAt.Before(before) })
	return int64(n - len(m.usage)), nil
}
