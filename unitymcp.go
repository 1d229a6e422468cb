// Package unitymcp runs Unity editor test suites in batch mode and
// summarises their results. It is exposed as a CLI and as an MCP server.
package unitymcp

// Version is the release version of unity-mcp.
const Version = "0.3.0"
