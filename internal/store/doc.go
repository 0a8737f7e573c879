// Package store records an append-only ledger of cookie operations.
//
// Each dispatched operation becomes one Event: the tool name, whether it was
// accepted, the self-assessed quality for reflections, the error kind for
// refusals, and the jar counts afterward. Both SQLiteStore and MockStore
// implement dispatch.Observer so they can be attached to a Dispatcher
// directly.
//
// The ledger is history only. The jar always starts from its configured
// supply and is never rebuilt from stored events.
package store
