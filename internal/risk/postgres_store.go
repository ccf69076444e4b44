package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbd888/riskoracle/internal/pagination"
)

// PostgresStore persists assessments in PostgreSQL. The schema lives in
// migrations/ and is applied with goose.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	factorsJSON, err := json.Marshal(assessment.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}
	flagsJSON, err := json.Marshal(assessment.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (
			id, agent_id, agent_type, score, level, should_block,
			confidence, explanation, flags, factors, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		assessment.ID,
		assessment.AgentID,
		assessment.AgentType,
		assessment.Score,
		string(assessment.Level),
		assessment.ShouldBlock,
		assessment.Confidence,
		assessment.Explanation,
		flagsJSON,
		factorsJSON,
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record risk assessment: %w", err)
	}
	return nil
}

const assessmentColumns = `id, agent_id, agent_type, score, level, should_block,
	confidence, explanation, flags, factors, evaluated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Assessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assessmentColumns+`
		FROM risk_assessments
		WHERE id = $1
	`, id)

	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk assessment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByAgent(ctx context.Context, agentID string, limit int, before *pagination.Cursor) ([]*Assessment, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+assessmentColumns+`
			FROM risk_assessments
			WHERE agent_id = $1
			ORDER BY evaluated_at DESC, id DESC
			LIMIT $2
		`, agentID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+assessmentColumns+`
			FROM risk_assessments
			WHERE agent_id = $1 AND (evaluated_at, id) < ($2, $3)
			ORDER BY evaluated_at DESC, id DESC
			LIMIT $4
		`, agentID, before.At, before.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := []*Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk assessment: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(sc scanner) (*Assessment, error) {
	var (
		a                    Assessment
		level                string
		flagsJSON, factorsJS []byte
	)
	if err := sc.Scan(&a.ID, &a.AgentID, &a.AgentType, &a.Score, &level, &a.ShouldBlock,
		&a.Confidence, &a.Explanation, &flagsJSON, &factorsJS, &a.EvaluatedAt); err != nil {
		return nil, err
	}
	a.Level = Level(level)
	a.Flags = []Flag{}
	if err := json.Unmarshal(flagsJSON, &a.Flags); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	a.Factors = make(map[string]float64)
	if err := json.Unmarshal(factorsJS, &a.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	return &a, nil
}
