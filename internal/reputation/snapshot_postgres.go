package reputation

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/mbd888/riskoracle/internal/history"
)

// PostgresSnapshotStore implements SnapshotStore backed by PostgreSQL.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore creates a PostgreSQL-backed snapshot store.
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

const insertSnapshot = `
	INSERT INTO agent_snapshots (agent_id, action_count, reputation, risk_profile, taken_at)
	VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`

func (p *PostgresSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	return p.db.QueryRowContext(ctx, insertSnapshot+` RETURNING id, taken_at`,
		snap.AgentID,
		snap.ActionCount,
		snap.Reputation,
		string(snap.RiskProfile),
		nullTime(snap.CreatedAt),
	).Scan(&snap.ID, &snap.CreatedAt)
}

func (p *PostgresSnapshotStore) SaveBatch(ctx context.Context, snaps []*Snapshot) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSnapshot)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range snaps {
		if _, err := stmt.ExecContext(ctx, s.AgentID, s.ActionCount, s.Reputation,
			string(s.RiskProfile), nullTime(s.CreatedAt)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgresSnapshotStore) Query(ctx context.Context, q HistoryQuery) ([]*Snapshot, error) {
	query := `
		SELECT id, agent_id, action_count, reputation, risk_profile, taken_at
		FROM agent_snapshots
		WHERE agent_id = $1`

	args := []interface{}{q.AgentID}
	argIdx := 2

	if !q.From.IsZero() {
		query += " AND taken_at >= $" + strconv.Itoa(argIdx)
		args = append(args, q.From)
		argIdx++
	}
	if !q.To.IsZero() {
		query += " AND taken_at <= $" + strconv.Itoa(argIdx)
		args = append(args, q.To)
		argIdx++
	}

	query += " ORDER BY taken_at DESC"

	query += " LIMIT $" + strconv.Itoa(argIdx)
	args = append(args, q.limit())

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanSnapshots(rows)
}

func (p *PostgresSnapshotStore) Latest(ctx context.Context, agentID string) (*Snapshot, error) {
	const q = `
		SELECT id, agent_id, action_count, reputation, risk_profile, taken_at
		FROM agent_snapshots
		WHERE agent_id = $1
		ORDER BY taken_at DESC
		LIMIT 1`

	s := &Snapshot{}
	var profile string
	err := p.db.QueryRowContext(ctx, q, agentID).
		Scan(&s.ID, &s.AgentID, &s.ActionCount, &s.Reputation, &profile, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.RiskProfile = history.Profile(profile)
	return s, nil
}

func scanSnapshots(rows *sql.Rows) ([]*Snapshot, error) {
	out := []*Snapshot{}
	for rows.Next() {
		s := &Snapshot{}
		var profile string
		if err := rows.Scan(&s.ID, &s.AgentID, &s.ActionCount, &s.Reputation, &profile, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.RiskProfile = history.Profile(profile)
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
