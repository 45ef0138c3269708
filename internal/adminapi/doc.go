// Package adminapi is the operator-facing control surface for the gateway
// process: start/stop individual accounts, bulk start/stop, set presence,
// and list running sessions, all JSON over HTTP with bearer JWT auth.
package adminapi
