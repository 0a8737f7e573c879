// Package dispatch maps the cookie tool names onto jar transitions.
//
// A Dispatcher owns one jar.Jar and a fixed table of six operations. Call
// decodes arguments, applies the reflection gates and the restock
// authorization check, and returns an Outcome carrying a rendered narrative
// and a snapshot of the jar after the call.
//
// Request problems (an unknown name, malformed or missing arguments) are
// returned as errors and never touch the jar. Jar-level refusals such as an
// empty jar, a bad restock amount, or a wrong authorization phrase are normal
// outcomes with Outcome.Err set, and observers see them like any other call.
package dispatch
