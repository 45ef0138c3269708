// Package handler implements the first-match handler chain applied to
// queued events: business-hours interception, human-agent escalation,
// keyword triggers, and the AI auto-reply fallback.
package handler
