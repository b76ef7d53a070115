package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mateusbmelzi/hub-entidades/internal/cache"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
)

// Publisher sends lifecycle messages.  queue.AMQPPublisher in production,
// queue.NopPublisher when no broker is configured.
type Publisher interface {
	Publish(ctx context.Context, msg queue.ReservationMessage) error
}

// Options carries the collaborators shared by the services.  Zero values
// get working defaults.
type Options struct {
	Publisher Publisher
	Cache     cache.EventListCache
	Logger    *slog.Logger
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Publisher == nil {
		o.Publisher = queue.NopPublisher{}
	}
	if o.Cache == nil {
		o.Cache = cache.Nop{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

const timeLayout = time.RFC3339

func (o Options) clock() time.Time { return o.Now().UTC() }

// notify publishes msg.  The change it reports is already committed, so a
// failure is only logged.
func (o Options) notify(ctx context.Context, msg queue.ReservationMessage) {
	if err := o.Publisher.Publish(ctx, msg); err != nil {
		o.Logger.WarnContext(ctx, "publish lifecycle message failed",
			slog.String("type", string(msg.Type)),
			slog.String("reservation_id", msg.ReservationID),
			slog.Any("err", err))
	}
}

// invalidateEvents drops the cached event pages after a linkage change.
func (o Options) invalidateEvents(ctx context.Context) {
	if err := o.Cache.Invalidate(ctx); err != nil {
		o.Logger.WarnContext(ctx, "event cache invalidation failed", slog.Any("err", err))
	}
}

func message(t queue.MessageType, r *model.Reservation, actor string, at time.Time) queue.ReservationMessage {
	msg := queue.ReservationMessage{
		Type:          t,
		ReservationID: r.ID.String(),
		Actor:         actor,
		At:            at.Format(timeLayout),
	}
	if r.RoomID != nil {
		msg.RoomID = r.RoomID.String()
	}
	if r.EventID != nil {
		msg.EventID = r.EventID.String()
	}
	return msg
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
