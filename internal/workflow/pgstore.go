package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore keeps each workflow as a jsonb payload next to the columns it is
// queried by.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &PGStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
create table if not exists flowdesk_workflows (
  id text primary key,
  business_id text not null,
  status text not null,
  payload jsonb not null,
  created_at timestamptz not null,
  updated_at timestamptz not null
);
create index if not exists flowdesk_workflows_business_idx
  on flowdesk_workflows (business_id, created_at desc);
create table if not exists flowdesk_workflow_versions (
  id text primary key,
  workflow_id text not null,
  version int not null,
  payload jsonb not null,
  created_at timestamptz not null,
  unique (workflow_id, version)
);
`)
	return err
}

func (s *PGStore) InsertWorkflow(ctx context.Context, w Workflow) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `insert into flowdesk_workflows (id, business_id, status, payload, created_at, updated_at)
values ($1, $2, $3, $4, $5, $6)`, w.ID, w.BusinessID, string(w.Status), b, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}
	return nil
}

func (s *PGStore) ReplaceWorkflow(ctx context.Context, w Workflow) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `update flowdesk_workflows set status=$2, payload=$3, updated_at=$4 where id=$1`,
		w.ID, string(w.Status), b, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to replace workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) GetWorkflow(ctx context.Context, id string) (Workflow, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `select payload from flowdesk_workflows where id=$1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Workflow{}, ErrNotFound
		}
		return Workflow{}, err
	}
	var w Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return Workflow{}, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}
	return w, nil
}

func (s *PGStore) ListWorkflows(ctx context.Context, businessID string) ([]Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `select payload from flowdesk_workflows where business_id=$1 order by created_at desc, id asc`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Workflow{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var w Workflow
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("failed to decode workflow: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PGStore) SaveVersion(ctx context.Context, w Workflow) (WorkflowVersion, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return WorkflowVersion{}, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	v := WorkflowVersion{
		ID:         newID("wfver"),
		WorkflowID: w.ID,
		Payload:    w,
		CreatedAt:  time.Now().UTC(),
	}
	err = s.db.QueryRowContext(ctx, `insert into flowdesk_workflow_versions (id, workflow_id, version, payload, created_at)
select $1, $2, coalesce(max(version), 0) + 1, $3, $4 from flowdesk_workflow_versions where workflow_id=$2
returning version`, v.ID, v.WorkflowID, b, v.CreatedAt).Scan(&v.Version)
	if err != nil {
		return WorkflowVersion{}, fmt.Errorf("failed to save version: %w", err)
	}
	return v, nil
}

func (s *PGStore) ListVersions(ctx context.Context, workflowID string) ([]WorkflowVersion, error) {
	rows, err := s.db.QueryContext(ctx, `select id, version, payload, created_at from flowdesk_workflow_versions where workflow_id=$1 order by version asc`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WorkflowVersion{}
	for rows.Next() {
		var (
			id      string
			version int
			raw     []byte
			created time.Time
		)
		if err := rows.Scan(&id, &version, &raw, &created); err != nil {
			return nil, err
		}
		var w Workflow
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("failed to decode version %s: %w", id, err)
		}
		out = append(out, WorkflowVersion{
			ID:         id,
			WorkflowID: workflowID,
			Version:    version,
			Payload:    w,
			CreatedAt:  created,
		})
	}
	return out, rows.Err()
}
