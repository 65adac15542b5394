// Package fullyloaded is the Fully Loaded checklist service: configuration,
// the HTTP API and the run, migrate and sync commands.
//
// Lists live under users/{uid}/lists/{name} in the configured backend.
// Shares are immutable snapshots readable without authentication. A
// second backend can be attached with FULLYLOADED_SECONDARY and moved to
// through the CQRS modes single, read_only, switching and reversed, with
// the sync command copying records the secondary missed.
package fullyloaded
