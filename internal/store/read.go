package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/atomtrack/internal/ir"
)

const nodeColumns = `n.pk, n.uuid, n.node_type, n.label, n.attributes, n.hash, n.process_state, n.exception, n.seq`

// Neighbor is a node reached over one link.
type Neighbor struct {
	Link ir.Link
	Node ir.NodeRecord
}

// ReadNode retrieves a single node by UUID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadNode(ctx context.Context, uuid string) (ir.NodeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		WHERE n.uuid = ?
	`, uuid)

	return scanNode(row)
}

// ReadAllNodes returns every node in deterministic order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ReadAllNodes(ctx context.Context) ([]ir.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	return collectNodes(rows)
}

// FindByHash returns the nodes whose content hash equals hash.
func (s *Store) FindByHash(ctx context.Context, hash string) ([]ir.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes n
		WHERE n.hash = ?
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query nodes by hash: %w", err)
	}
	return collectNodes(rows)
}

// ReadIncoming returns the links ending at uuid together with their source nodes.
func (s *Store) ReadIncoming(ctx context.Context, uuid string) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.link_type, l.label, o.uuid, `+nodeColumns+`
		FROM links l
		JOIN nodes o ON o.pk = l.output_pk
		JOIN nodes n ON n.pk = l.input_pk
		WHERE o.uuid = ?
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC, l.label COLLATE BINARY ASC
	`, uuid)
	if err != nil {
		return nil, fmt.Errorf("query incoming links: %w", err)
	}
	return collectNeighbors(rows, true)
}

// ReadOutgoing returns the links starting at uuid together with their target nodes.
func (s *Store) ReadOutgoing(ctx context.Context, uuid string) ([]Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.link_type, l.label, i.uuid, `+nodeColumns+`
		FROM links l
		JOIN nodes i ON i.pk = l.input_pk
		JOIN nodes n ON n.pk = l.output_pk
		WHERE i.uuid = ?
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC, l.label COLLATE BINARY ASC
	`, uuid)
	if err != nil {
		return nil, fmt.Errorf("query outgoing links: %w", err)
	}
	return collectNeighbors(rows, false)
}

// ReadAllLinks returns every link in insertion order.
func (s *Store) ReadAllLinks(ctx context.Context) ([]ir.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, i.uuid, o.uuid, l.link_type, l.label
		FROM links l
		JOIN nodes i ON i.pk = l.input_pk
		JOIN nodes o ON o.pk = l.output_pk
		ORDER BY l.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []ir.Link{}
	for rows.Next() {
		var link ir.Link
		var linkType string
		if err := rows.Scan(&link.ID, &link.InputUUID, &link.OutputUUID, &linkType, &link.Label); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		link.Type = ir.LinkType(linkType)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// CountNodes returns the number of stored nodes.
func (s *Store) CountNodes(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// CountLinks returns the number of stored links.
func (s *Store) CountLinks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

// MaxSeq returns the highest seq in the store, or 0 for an empty store.
// The engine resumes its clock from this value.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM nodes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner, prefix ...any) (ir.NodeRecord, error) {
	var rec ir.NodeRecord
	var nodeType, attrsJSON, state string
	dest := append(prefix, &rec.PK, &rec.UUID, &nodeType, &rec.Label, &attrsJSON, &rec.Hash, &state, &rec.ExceptionText, &rec.Seq)
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return ir.NodeRecord{}, err
		}
		return ir.NodeRecord{}, fmt.Errorf("scan node: %w", err)
	}

	attrs, err := unmarshalAttributes(attrsJSON)
	if err != nil {
		return ir.NodeRecord{}, fmt.Errorf("node %s: %w", rec.UUID, err)
	}
	rec.Type = ir.NodeType(nodeType)
	rec.ProcessState = ir.ProcessState(state)
	rec.Attributes = attrs
	return rec, nil
}

func collectNodes(rows *sql.Rows) ([]ir.NodeRecord, error) {
	defer rows.Close()

	nodes := []ir.NodeRecord{}
	for rows.Next() {
		rec, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// collectNeighbors scans rows of (link id, type, label, anchor uuid, node columns).
// incoming selects whether the anchor is the link's output or its input.
func collectNeighbors(rows *sql.Rows, incoming bool) ([]Neighbor, error) {
	defer rows.Close()

	out := []Neighbor{}
	for rows.Next() {
		var link ir.Link
		var linkType, anchor string
		rec, err := scanNode(rows, &link.ID, &linkType, &link.Label, &anchor)
		if err != nil {
			return nil, err
		}
		link.Type = ir.LinkType(linkType)
		if incoming {
			link.InputUUID, link.OutputUUID = rec.UUID, anchor
		} else {
			link.InputUUID, link.OutputUUID = anchor, rec.UUID
		}
		out = append(out, Neighbor{Link: link, Node: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return out, nil
}
