// Package auth provides bearer-token authentication for the HTTP transport.
//
// Tokens are HS256 JWTs issued by "cookie-jar token" and signed with the
// configured secret. The stdio transport is never authenticated: whoever
// spawned the process already owns it.
//
// Authentication guards who may reach the MCP endpoint at all. It does not
// replace the refill phrase that add_cookies_to_jar checks, which separates
// the user from the model inside an already-connected session.
package auth
