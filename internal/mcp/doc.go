// Package mcp exposes the cookie dispatcher over the Model Context Protocol.
//
// # Tools
//
// Every dispatcher operation becomes an MCP tool with the same name and an
// input schema inferred from its argument type:
//
//   - self_reflect_and_reward: rate a response and maybe earn a cookie
//   - give_cookie: award a cookie directly
//   - check_cookies, cookie_jar_status: read-only queries
//   - reset_cookies: clear the collected count
//   - add_cookies_to_jar: restock, gated on the user authorization phrase
//
// Each result carries the narrative as text content and a Result as
// structured content. Jar-level refusals (empty jar, bad amount, wrong
// phrase) set IsError so clients can tell them apart from normal answers.
//
// # Resources
//
// cookie://usage-guide returns the plain-text usage guide.
//
// # Transports
//
// Run serves one client over stdio. Handler returns a Streamable HTTP handler
// that the HTTP server mounts at /mcp:
//
//	{
//	  "mcpServers": {
//	    "cookie": {
//	      "url": "http://localhost:8080/mcp"
//	    }
//	  }
//	}
package mcp
