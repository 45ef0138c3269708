// ABOUTME: Handler that intercepts all traffic outside configured business
// ABOUTME: hours with a fixed "we're closed" auto-reply.

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/csgw/gateway/internal/model"
)

// BusinessHoursHandler accepts every event once the current time falls
// outside [Start, End] (both "HH:MM", both ends inclusive), and replies with a fixed message
// instead of letting the event reach AI/keyword handlers.
type BusinessHoursHandler struct {
	Start, End string
	Sender     Sender
	Now        func() time.Time
	Logger     *slog.Logger
}

func (h *BusinessHoursHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *BusinessHoursHandler) Accepts(event *model.Event) bool {
	return !h.isBusinessHours()
}

func (h *BusinessHoursHandler) isBusinessHours() bool {
	start, err1 := time.Parse("15:04", h.Start)
	end, err2 := time.Parse("15:04", h.End)
	if err1 != nil || err2 != nil {
		return true
	}
	now := h.now()
	cur := time.Date(0, 1, 1, now.Hour(), now.Minute(), 0, 0, time.UTC)
	start = time.Date(0, 1, 1, start.Hour(), start.Minute(), 0, 0, time.UTC)
	end = time.Date(0, 1, 1, end.Hour(), end.Minute(), 0, 0, time.UTC)
	return !cur.Before(start) && !cur.After(end)
}

func (h *BusinessHoursHandler) Handle(ctx context.Context, event *model.Event, meta Meta) error {
	reply := fmt.Sprintf(
		"Thanks for reaching out. Our business hours are %s-%s; we'll reply as soon as we're back.",
		h.Start, h.End,
	)
	if err := h.Sender.SendMessage(ctx, meta.Account, event.FromUID, reply); err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("sent off-hours auto-reply", "account", meta.Account.Key(), "to_uid", event.FromUID)
	}
	return nil
}

var _ Handler = (*BusinessHoursHandler)(nil)
