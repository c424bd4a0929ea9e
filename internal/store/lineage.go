package store

import (
	"context"
	"fmt"

	"github.com/roach88/atomtrack/internal/ir"
)

// Ancestors returns every node upstream of uuid: the calculations that
// created it, their inputs, the calculations that created those, and so on.
// The node itself is not included. Order is deterministic (seq, uuid).
func (s *Store) Ancestors(ctx context.Context, uuid string) ([]ir.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE upstream(pk) AS (
			SELECT l.input_pk
			FROM links l
			JOIN nodes o ON o.pk = l.output_pk
			WHERE o.uuid = ?
			UNION
			SELECT l.input_pk
			FROM links l
			JOIN upstream u ON l.output_pk = u.pk
		)
		SELECT `+nodeColumns+`
		FROM nodes n
		JOIN upstream u ON u.pk = n.pk
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC
	`, uuid)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	return collectNodes(rows)
}

// Descendants returns every node downstream of uuid, excluding the node itself.
func (s *Store) Descendants(ctx context.Context, uuid string) ([]ir.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE downstream(pk) AS (
			SELECT l.output_pk
			FROM links l
			JOIN nodes i ON i.pk = l.input_pk
			WHERE i.uuid = ?
			UNION
			SELECT l.output_pk
			FROM links l
			JOIN downstream d ON l.input_pk = d.pk
		)
		SELECT `+nodeColumns+`
		FROM nodes n
		JOIN downstream d ON d.pk = n.pk
		ORDER BY n.seq ASC, n.uuid COLLATE BINARY ASC
	`, uuid)
	if err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}
	return collectNodes(rows)
}

// Trace is the provenance of one node: the node, its ancestors and the
// links among them.
type Trace struct {
	Node      ir.NodeRecord   `json:"node"`
	Ancestors []ir.NodeRecord `json:"ancestors"`
	Links     []ir.Link       `json:"links"`
}

// ReadTrace collects the provenance graph that ends at uuid.
// Returns sql.ErrNoRows if uuid is not stored.
func (s *Store) ReadTrace(ctx context.Context, uuid string) (Trace, error) {
	node, err := s.ReadNode(ctx, uuid)
	if err != nil {
		return Trace{}, err
	}
	ancestors, err := s.Ancestors(ctx, uuid)
	if err != nil {
		return Trace{}, err
	}

	members := make(map[string]bool, len(ancestors)+1)
	members[node.UUID] = true
	for _, a := range ancestors {
		members[a.UUID] = true
	}

	all, err := s.ReadAllLinks(ctx)
	if err != nil {
		return Trace{}, err
	}
	links := []ir.Link{}
	for _, l := range all {
		if members[l.InputUUID] && members[l.OutputUUID] {
			links = append(links, l)
		}
	}
	return Trace{Node: node, Ancestors: ancestors, Links: links}, nil
}
