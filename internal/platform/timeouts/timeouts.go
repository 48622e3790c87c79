// Package timeouts defines shared timeout constants for the ledger's
// HTTP surface. Centralizing the durations keeps them discoverable and
// prevents drift between entry points.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
