package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/clone-service/internal/entity"
)

// EventLogRepoImpl archives clone events in PostgreSQL. It is used when
// Redis is not configured.
type EventLogRepoImpl struct {
	db *pgxpool.Pool
}

// NewEventLogRepo creates a new instance of EventLogRepoImpl.
func NewEventLogRepo(db *pgxpool.Pool) *EventLogRepoImpl {
	return &EventLogRepoImpl{db: db}
}

// Append stores the event. A repeated (clone_id, seq) is ignored.
func (r *EventLogRepoImpl) Append(ctx context.Context, cloneID string, ev entity.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO clone_events (clone_id, seq, event)
		VALUES ($1, $2, $3)
		ON CONFLICT (clone_id, seq) DO NOTHING;
	`
	_, err = r.db.Exec(ctx, query, cloneID, ev.Seq, data)
	return err
}

// Range retrieves events with seq >= fromSeq in order.
func (r *EventLogRepoImpl) Range(ctx context.Context, cloneID string, fromSeq int64) ([]entity.Event, error) {
	query := `
		SELECT event
		FROM clone_events
		WHERE clone_id = $1 AND seq >= $2
		ORDER BY seq ASC;
	`
	rows, err := r.db.Query(ctx, query, cloneID, fromSeq)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []entity.Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev entity.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
