// Package agentbot adapts decoded chat events into prompts for an external
// conversational AI agent, persisting one conversation id per user through
// store.Store rather than an in-process cache.
package agentbot
