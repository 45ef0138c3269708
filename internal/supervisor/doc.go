// Package supervisor owns the start/stop lifecycle of every account's
// transport+queue+consumer pipeline, one per account key, grounded on the
// teacher's single-struct orchestration style.
package supervisor
