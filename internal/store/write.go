package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/atomtrack/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteNode inserts a node record and returns its primary key.
// Uses ON CONFLICT(uuid) DO NOTHING for idempotency: writing the same UUID
// again returns the existing key with inserted=false.
func (s *Store) WriteNode(ctx context.Context, rec ir.NodeRecord) (pk int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write node: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	pk, inserted, err = writeNode(ctx, tx, rec)
	if err != nil {
		return 0, false, fmt.Errorf("write node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write node: commit: %w", err)
	}
	return pk, inserted, nil
}

func writeNode(ctx context.Context, db execer, rec ir.NodeRecord) (int64, bool, error) {
	if !ir.ValidNodeTypes[rec.Type] {
		return 0, false, fmt.Errorf("node %s: unknown node type %q", rec.UUID, rec.Type)
	}
	attrsJSON, err := marshalAttributes(rec.Attributes)
	if err != nil {
		return 0, false, fmt.Errorf("node %s: %w", rec.UUID, err)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO nodes
		(uuid, node_type, label, attributes, hash, process_state, exception, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO NOTHING
	`,
		rec.UUID,
		string(rec.Type),
		rec.Label,
		attrsJSON,
		rec.Hash,
		string(rec.ProcessState),
		rec.ExceptionText,
		rec.Seq,
	)
	if err != nil {
		return 0, false, fmt.Errorf("node %s: insert: %w", rec.UUID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("node %s: rows affected: %w", rec.UUID, err)
	}

	if rowsAffected > 0 {
		pk, err := result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("node %s: last insert id: %w", rec.UUID, err)
		}
		return pk, true, nil
	}

	// Conflict - node already stored, fetch the existing key
	var pk int64
	if err := db.QueryRowContext(ctx, `SELECT pk FROM nodes WHERE uuid = ?`, rec.UUID).Scan(&pk); err != nil {
		return 0, false, fmt.Errorf("node %s: select existing: %w", rec.UUID, err)
	}
	return pk, false, nil
}

// WriteLink inserts a link between two stored nodes.
// Duplicate links are silently ignored. Both endpoints must exist.
func (s *Store) WriteLink(ctx context.Context, link ir.Link) error {
	if err := writeLink(ctx, s.db, link); err != nil {
		return fmt.Errorf("write link: %w", err)
	}
	return nil
}

func writeLink(ctx context.Context, db execer, link ir.Link) error {
	var inputPK, outputPK int64
	if err := db.QueryRowContext(ctx, `SELECT pk FROM nodes WHERE uuid = ?`, link.InputUUID).Scan(&inputPK); err != nil {
		return fmt.Errorf("input node %s: %w", link.InputUUID, err)
	}
	if err := db.QueryRowContext(ctx, `SELECT pk FROM nodes WHERE uuid = ?`, link.OutputUUID).Scan(&outputPK); err != nil {
		return fmt.Errorf("output node %s: %w", link.OutputUUID, err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO links
		(input_pk, output_pk, link_type, label)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(input_pk, output_pk, link_type, label) DO NOTHING
	`,
		inputPK,
		outputPK,
		string(link.Type),
		link.Label,
	)
	if err != nil {
		return fmt.Errorf("insert %s -> %s: %w", link.InputUUID, link.OutputUUID, err)
	}
	return nil
}

// Calculation is everything one tracked call writes.
type Calculation struct {
	// Nodes are written in order; already-stored nodes are left untouched.
	Nodes []ir.NodeRecord
	// Links may refer to any node in Nodes or already in the store.
	Links []ir.Link
}

// WriteCalculation atomically writes the nodes and links of one call in a
// single transaction and returns the primary key of every node by UUID.
// Either everything is written or nothing is.
func (s *Store) WriteCalculation(ctx context.Context, calc Calculation) (map[string]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write calculation: begin tx: %w", err)
	}
	defer tx.Rollback()

	pks := make(map[string]int64, len(calc.Nodes))
	for _, rec := range calc.Nodes {
		pk, _, err := writeNode(ctx, tx, rec)
		if err != nil {
			return nil, fmt.Errorf("write calculation: %w", err)
		}
		pks[rec.UUID] = pk
	}

	for _, link := range calc.Links {
		if err := writeLink(ctx, tx, link); err != nil {
			return nil, fmt.Errorf("write calculation: link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write calculation: commit: %w", err)
	}
	return pks, nil
}
