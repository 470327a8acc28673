package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gomosbridge/types"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultTable = "bridge_events"

// Archive copies committed bridge events into Postgres so indexers can query
// them by order id. Writes are idempotent on the event id.
type Archive struct {
	dbConnStr string
	table     string
	logger    *logrus.Logger
}

// NewArchive creates an archive writing into table, bridge_events if empty.
func NewArchive(connStr, table string, logger *logrus.Logger) *Archive {
	if table == "" {
		table = defaultTable
	}
	return &Archive{dbConnStr: connStr, table: table, logger: logger}
}

type row struct {
	ID        string
	Kind      string
	EmittedAt int64
	OrderID   sql.NullString
	Data      []byte
}

func toRow(ev types.Envelope) (row, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return row{}, errors.Wrapf(err, "marshal event %s", ev.ID)
	}
	var ref struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return row{}, errors.Wrapf(err, "event %s", ev.ID)
	}
	return row{
		ID:        ev.ID,
		Kind:      string(ev.Kind),
		EmittedAt: ev.EmittedAt,
		OrderID:   sql.NullString{String: ref.OrderID, Valid: ref.OrderID != ""},
		Data:      data,
	}, nil
}

func (a *Archive) schema() string {
	t := pq.QuoteIdentifier(a.table)
	return fmt.Sprintf(`
       CREATE TABLE IF NOT EXISTS %s (
           id         TEXT PRIMARY KEY,
           kind       TEXT NOT NULL,
           emitted_at BIGINT NOT NULL,
           order_id   TEXT,
           data       JSONB NOT NULL
       );
       CREATE INDEX IF NOT EXISTS %s ON %s (order_id)`,
		t, pq.QuoteIdentifier(a.table+"_order_id_idx"), t)
}

func (a *Archive) insert() string {
	return fmt.Sprintf(`
       INSERT INTO %s (id, kind, emitted_at, order_id, data)
       VALUES ($1, $2, $3, $4, $5)
       ON CONFLICT (id) DO NOTHING`, pq.QuoteIdentifier(a.table))
}

// Migrate creates the archive table when missing.
func (a *Archive) Migrate(ctx context.Context) error {
	db, err := sql.Open("postgres", a.dbConnStr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, a.schema()); err != nil {
		return errors.Wrap(err, "failed to create events table")
	}
	return nil
}

// Emit stores events in one transaction.
func (a *Archive) Emit(ctx context.Context, events []types.Envelope) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]row, 0, len(events))
	for _, ev := range events {
		r, err := toRow(ev)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	db, err := sql.Open("postgres", a.dbConnStr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := a.insert()
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, query, r.ID, r.Kind, r.EmittedAt, r.OrderID, r.Data); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				a.logger.WithFields(logrus.Fields{"event": r.ID, "code": string(pqErr.Code), "error": pqErr.Message}).Error("archive insert failed")
			}
			return errors.Wrapf(err, "failed to archive event %s", r.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit archived events")
	}
	return nil
}

// ByOrderID returns the archived events of one order, oldest first.
func (a *Archive) ByOrderID(ctx context.Context, orderID string) ([]types.Envelope, error) {
	db, err := sql.Open("postgres", a.dbConnStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	defer db.Close()

	rs, err := db.QueryContext(ctx, fmt.Sprintf(`
       SELECT id, kind, emitted_at, data
       FROM %s
       WHERE order_id = $1
       ORDER BY emitted_at, id`, pq.QuoteIdentifier(a.table)), orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rs.Close()

	var out []types.Envelope
	for rs.Next() {
		var (
			id, kind  string
			emittedAt int64
			data      []byte
		)
		if err := rs.Scan(&id, &kind, &emittedAt, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		raw, err := json.Marshal(map[string]interface{}{
			"id":         id,
			"kind":       kind,
			"emitted_at": emittedAt,
			"data":       json.RawMessage(data),
		})
		if err != nil {
			return nil, err
		}
		var ev types.Envelope
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, errors.Wrapf(err, "decode event %s", id)
		}
		out = append(out, ev)
	}
	return out, rs.Err()
}
