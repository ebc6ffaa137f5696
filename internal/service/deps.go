package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smartmove/internal/domain"
	"smartmove/internal/events"
	"smartmove/internal/metrics"
	"smartmove/internal/redis"
	"smartmove/internal/repository"
	"smartmove/internal/scheduling"
)

const defaultLockTTL = 10 * time.Second

// Deps are the collaborators shared by the scheduling services. Cache,
// Publisher and Metrics are optional.
type Deps struct {
	Tx        repository.TxManager
	Repos     repository.Repositories
	Locks     redis.LockStoreInterface
	Cache     redis.CacheStoreInterface
	Publisher events.Publisher
	Metrics   *metrics.Scheduler
	Logger    zerolog.Logger
	LockTTL   time.Duration
	Location  *time.Location

	// Now and NewID default to time.Now and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

func (d *Deps) setDefaults() {
	if d.LockTTL <= 0 {
		d.LockTTL = defaultLockTTL
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
}

// lock takes the lock for kind/id and returns its release function.
// A lock held by someone else yields ErrResourceBusy.
func (d *Deps) lock(ctx context.Context, kind, id, token string) (func(), error) {
	ok, err := d.Locks.AcquireLock(ctx, kind, id, token, d.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", kind, err)
	}
	if !ok {
		d.Metrics.LockContended(kind)
		d.Logger.Warn().Str("resource", kind).Str("resource_id", id).Msg("lock contention")
		return nil, fmt.Errorf("%w: %s %s", ErrResourceBusy, kind, id)
	}
	return func() {
		// Release on a fresh context so a cancelled request still frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := d.Locks.ReleaseLock(releaseCtx, kind, id, token); err != nil {
			d.Logger.Error().Err(err).Str("resource", kind).Str("resource_id", id).Msg("release lock")
		}
	}, nil
}

// afterTransition runs the best-effort side effects of a committed
// transition: availability cache, lifecycle event, metrics and logging.
// Failures are logged and never undo the transition.
func (d *Deps) afterTransition(ctx context.Context, req *domain.Request, asg *domain.Assignment, effect scheduling.Effect, reason string) {
	log := d.Logger.With().Str("request_id", req.ID).Str("event", string(effect.Event)).Logger()
	if asg != nil {
		log = log.With().Str("assignment_id", asg.ID).Str("vehicle_id", asg.VehicleID).Str("driver_id", asg.DriverID).Logger()
	}

	if d.Cache != nil && effect.DriverAvailable != nil {
		if err := d.Cache.SetDriverAvailable(ctx, effect.DriverID, *effect.DriverAvailable); err != nil {
			log.Warn().Err(err).Msg("update driver availability cache")
		}
	}

	ev := events.LifecycleEvent{
		Type:       eventType(effect.Event),
		RequestID:  req.ID,
		From:       effect.From,
		To:         effect.To,
		Reason:     reason,
		OccurredAt: d.Now(),
	}
	if asg != nil {
		ev.AssignmentID = asg.ID
		ev.VehicleID = asg.VehicleID
		ev.DriverID = asg.DriverID
		departs, arrives := asg.Interval.Start, asg.Interval.End
		ev.DepartsAt, ev.ArrivesAt = &departs, &arrives
	}
	if err := d.Publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Msg("publish lifecycle event")
	}

	d.Metrics.Transitioned(string(effect.Event))
	log.Info().Str("from", string(effect.From)).Str("to", string(effect.To)).Msg("request transitioned")
}

func eventType(ev scheduling.Event) string {
	switch ev {
	case scheduling.EventApprove:
		return events.TypeApproved
	case scheduling.EventReject:
		return events.TypeRejected
	case scheduling.EventStart:
		return events.TypeStarted
	case scheduling.EventComplete:
		return events.TypeCompleted
	case scheduling.EventCancel:
		return events.TypeCancelled
	}
	return string(ev)
}

// fleet returns the active vehicles and drivers, from cache when possible.
func (d *Deps) fleet(ctx context.Context) ([]domain.Vehicle, []domain.Driver, error) {
	if d.Cache != nil {
		cached, err := d.Cache.GetFleet(ctx)
		if err != nil {
			d.Logger.Warn().Err(err).Msg("read fleet cache")
		} else if cached != nil {
			vehicles, drivers := cached.Domain()
			return vehicles, drivers, nil
		}
	}

	vehicles, err := d.Repos.Vehicles.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list vehicles: %w", err)
	}
	drivers, err := d.Repos.Drivers.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list drivers: %w", err)
	}

	if d.Cache != nil {
		if err := d.Cache.SetFleet(ctx, redis.NewCachedFleet(vehicles, drivers)); err != nil {
			d.Logger.Warn().Err(err).Msg("write fleet cache")
		}
	}
	return vehicles, drivers, nil
}

// activeAssignment returns the request's assignment, or nil when it has none.
func activeAssignment(ctx context.Context, repos repository.Repositories, requestID string) (*domain.Assignment, error) {
	asg, err := repos.Assignments.GetByRequestID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return asg, nil
}
