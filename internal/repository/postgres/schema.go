package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the scheduling tables. Active assignments of one vehicle or
// one driver may not overlap; the EXCLUDE constraints enforce it.
const schema = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS vehicles (
    id           TEXT PRIMARY KEY,
    plate        TEXT NOT NULL DEFAULT '',
    capacity     INTEGER NOT NULL CHECK (capacity > 0),
    vehicle_type TEXT NOT NULL DEFAULT '',
    fuel_type    TEXT NOT NULL DEFAULT 'petrol',
    active       BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS drivers (
    id        TEXT PRIMARY KEY,
    name      TEXT NOT NULL DEFAULT '',
    phone     TEXT NOT NULL DEFAULT '',
    active    BOOLEAN NOT NULL DEFAULT TRUE,
    available BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS requests (
    id                         TEXT PRIMARY KEY,
    requester_id               TEXT NOT NULL DEFAULT '',
    origin                     TEXT NOT NULL,
    destination                TEXT NOT NULL,
    requested_at               TIMESTAMPTZ NOT NULL,
    passenger_count            INTEGER NOT NULL CHECK (passenger_count > 0),
    priority                   SMALLINT NOT NULL CHECK (priority BETWEEN 1 AND 4),
    flexibility_minutes        INTEGER NOT NULL,
    estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
    purpose                    TEXT NOT NULL DEFAULT '',
    status                     TEXT NOT NULL DEFAULT 'pending',
    rejection_reason           TEXT NOT NULL DEFAULT '',
    created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status, requested_at);

CREATE TABLE IF NOT EXISTS assignments (
    id          TEXT PRIMARY KEY,
    request_id  TEXT NOT NULL REFERENCES requests(id),
    vehicle_id  TEXT NOT NULL REFERENCES vehicles(id),
    driver_id   TEXT NOT NULL REFERENCES drivers(id),
    departs_at  TIMESTAMPTZ NOT NULL,
    arrives_at  TIMESTAMPTZ NOT NULL,
    status      TEXT NOT NULL DEFAULT 'assigned',
    notes       TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (departs_at < arrives_at),
    CONSTRAINT assignments_vehicle_no_overlap EXCLUDE USING gist (
        vehicle_id WITH =,
        tstzrange(departs_at, arrives_at, '[)') WITH &&
    ) WHERE (status IN ('assigned', 'in_progress')),
    CONSTRAINT assignments_driver_no_overlap EXCLUDE USING gist (
        driver_id WITH =,
        tstzrange(departs_at, arrives_at, '[)') WITH &&
    ) WHERE (status IN ('assigned', 'in_progress'))
);

CREATE INDEX IF NOT EXISTS assignments_request_idx ON assignments (request_id, created_at);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
