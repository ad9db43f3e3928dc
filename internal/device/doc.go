// Package device is the core of HomeHub: the polymorphic device model,
// per-type action contracts, and the state-merge and persistence
// discipline that keeps stored state converged with physical reality.
//
// # Model
//
// A Descriptor is the static, config-sourced definition of one physical
// device (identity plus connection parameters). An Instance combines a
// descriptor with the last persisted state document and a fixed
// capability set selected by the descriptor's type string. Instances are
// constructed fresh on every registry load; nothing is cached across
// requests.
//
// # Merge discipline
//
// On load, the stored document is read first and the descriptor fields
// are re-applied on top, so config is always authoritative for
// connection fields. Every device-originated update stamps last_update
// (unix + human) and shallow-merges the changed keys before the whole
// document is rewritten. The outdated flag is derived at load time from
// the stale_after threshold and is never persisted.
//
// # Dispatch
//
// Every variant answers the same contract:
//
//	result, err := inst.Dispatch(ctx, action, msg)
//
// Validation failures and unknown actions return a typed error before
// any side effect. Transport failures degrade the device to offline and
// come back as a failed Result, never as an error escaping the adapter
// boundary.
package device
