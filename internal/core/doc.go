// Package core provides the business logic of the risk console.
//
// It loads the records behind every admin list view, applies admin mutations
// and records them in the audit log. It is independent of any UI or transport
// layer and can be used by web handlers, background jobs or tests without
// modification.
//
// # Architecture
//
//   - Store: persistence boundary. [PostgresStore] is the production
//     implementation; [Store.InTx] groups a mutation with its audit entry.
//   - Service: list loaders, invitation and settings mutations, and the
//     retention scheduler.
//   - Views: [NewAuditLogView], [NewInvitationsView], [NewOrganizationsView]
//     and [NewUsageView] declare the columns and filters the table engine
//     runs over each record type. Their metadata lives in the registry.
//   - [ExportLimiter]: caps how many exports are built at the same time.
//
// # View Registry
//
// Views register at init time using [Register]:
//
//	core.Register(core.ViewInfo{Key: "usage", Group: "AI", Label: "AI Usage"})
//
// [All], [ByGroup] and [Groups] drive the dashboard and navigation.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - INV001-INV003: Invitation rules (duplicates, state, domains)
//   - VAL001-VAL009: Input validation
//   - TBL001-TBL004: View lookups and export formats
//   - RATE001-RATE002: Request rate and export queue limits
//   - DB001-DB008: Database errors
//
// # Audit Logging
//
// Every mutation is recorded in the audit log with a severity level:
//
//   - Low: View exports, invitation expiry
//   - Medium: Invitation creation
//   - High: Invitation revocation, settings changes
//   - Critical: Retention purges
//
// Old audit and usage rows are deleted by the retention scheduler based on
// the configured retention policy.
package core
