// Package service wires corpus loading, ingestion, retrieval and answer generation into
// the operations exposed by the HTTP API, the MCP server and the CLI.
//
// A Service is constructed once at startup and is safe for concurrent use. Concurrent
// writes of the same chunk identity are last-write-wins.
package service
