// Package inspect serves a runtime's stores and services over HTTP for
// debugging tools.
//
// Endpoints:
//
//	GET  /healthz                liveness check
//	GET  /stores                 current value of every store, keyed by store key
//	GET  /stores/{key}           current value of one store
//	PUT  /stores/{key}           replace a store value with the JSON request body
//	POST /stores/{key}/reset     reset a store to its initial value
//	GET  /services               sorted service keys
//	GET  /snapshot               snapshot document of every store
//	POST /snapshot               restore stores from a snapshot document
//	GET  /ws/stores/{key}        websocket stream of store values
//	GET  /metrics                Prometheus metrics, when configured
//
// Each websocket connection is backed by a bridge.Session, so it shows up
// in binding metrics and is released when the client disconnects.
package inspect
