// ABOUTME: Account, Shop, and Conversation domain types shared across the pipeline.
// ABOUTME: Credentials are always treated as an opaque bundle, never parsed by callers.

package model

import (
	"fmt"
	"time"
)

// Presence is the platform-visible availability of a seat.
type Presence int

const (
	PresenceUnverified Presence = iota
	PresenceRest
	PresenceOnline
	PresenceOffline
)

// PlatformCode returns the numeric presence code the platform API expects.
func (p Presence) PlatformCode() int {
	switch p {
	case PresenceRest:
		return 0
	case PresenceOnline:
		return 1
	case PresenceOffline:
		return 3
	default:
		return -1
	}
}

func (p Presence) String() string {
	switch p {
	case PresenceRest:
		return "rest"
	case PresenceOnline:
		return "online"
	case PresenceOffline:
		return "offline"
	default:
		return "unverified"
	}
}

// ParsePresence parses the string form produced by Presence.String.
func ParsePresence(s string) (Presence, error) {
	switch s {
	case "unverified":
		return PresenceUnverified, nil
	case "rest":
		return PresenceRest, nil
	case "online":
		return PresenceOnline, nil
	case "offline":
		return PresenceOffline, nil
	default:
		return 0, fmt.Errorf("unrecognized presence %q", s)
	}
}

// Account identifies one merchant seat: a channel account with its own credentials.
type Account struct {
	Channel       string
	ShopID        string
	AccountUserID string
	Username      string
	Password      string
	ProfileDir    string

	// Credentials is an opaque cookie/session bundle. Never parsed by the
	// pipeline; only passed back into the platform client and login provider.
	Credentials string

	Presence Presence
}

// Key identifies the account for session-uniqueness and locking purposes.
func (a Account) Key() string {
	return a.Channel + ":" + a.ShopID + ":" + a.AccountUserID
}

// Shop is a merchant storefront; owns zero or more accounts.
type Shop struct {
	Channel     string
	ShopID      string
	Name        string
	Logo        string
	Description string
}

// Conversation maps one end-user to a conversation id held by the
// external conversational agent. Created lazily on first AI interaction
// and never garbage-collected by the core pipeline.
type Conversation struct {
	UserKey        string
	ConversationID string
	CreatedAt      time.Time
}

// Keyword is a single transfer/trigger keyword row sourced from the store.
type Keyword struct {
	ID      int64
	Keyword string
}
