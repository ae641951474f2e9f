// Package sqlite persists layout snapshots so a restarted daemon can
// restore its container tree. Focus order is not persisted; it is rebuilt
// as child order on load.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/pablospe/i3/pkg/layout"
)

// Store owns the snapshot database.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying database file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = DELETE;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			parent_id INTEGER REFERENCES nodes(id) ON DELETE CASCADE,
			node_type INTEGER NOT NULL,
			name TEXT NOT NULL,
			num INTEGER NOT NULL DEFAULT -1,
			layout INTEGER NOT NULL,
			workspace_layout INTEGER NOT NULL,
			border INTEGER NOT NULL,
			border_width INTEGER NOT NULL,
			floating INTEGER NOT NULL,
			scratchpad INTEGER NOT NULL,
			fullscreen INTEGER NOT NULL,
			rect_x INTEGER NOT NULL, rect_y INTEGER NOT NULL,
			rect_w INTEGER NOT NULL, rect_h INTEGER NOT NULL,
			win_x INTEGER NOT NULL, win_y INTEGER NOT NULL,
			win_w INTEGER NOT NULL, win_h INTEGER NOT NULL,
			geom_x INTEGER NOT NULL, geom_y INTEGER NOT NULL,
			geom_w INTEGER NOT NULL, geom_h INTEGER NOT NULL,
			percent REAL NOT NULL,
			urgent INTEGER NOT NULL,
			mark TEXT NOT NULL DEFAULT '',
			window INTEGER NOT NULL DEFAULT 0,
			is_floating_child INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent_pos ON nodes(parent_id, is_floating_child, position);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored snapshot with the tree rooted at root.
func (s *Store) Save(ctx context.Context, root *layout.Node) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		tx.Rollback()
		return err
	}
	if root != nil {
		if err := s.insertNode(ctx, tx, root, nil, false, 0); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, n *layout.Node, parentID *uint64, floatingChild bool, position int) error {
	urgent := 0
	if n.Urgent {
		urgent = 1
	}
	fc := 0
	if floatingChild {
		fc = 1
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO nodes(
		id, parent_id, node_type, name, num,
		layout, workspace_layout, border, border_width,
		floating, scratchpad, fullscreen,
		rect_x, rect_y, rect_w, rect_h,
		win_x, win_y, win_w, win_h,
		geom_x, geom_y, geom_w, geom_h,
		percent, urgent, mark, window, is_floating_child, position
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		n.ID, parentID, int(n.Type), n.Name, n.Num,
		int(n.Layout), int(n.WorkspaceLayout), int(n.Border), n.CurrentBorderWidth,
		int(n.Floating), int(n.Scratchpad), n.FullscreenMode,
		n.Rect.X, n.Rect.Y, n.Rect.Width, n.Rect.Height,
		n.WindowRect.X, n.WindowRect.Y, n.WindowRect.Width, n.WindowRect.Height,
		n.Geometry.X, n.Geometry.Y, n.Geometry.Width, n.Geometry.Height,
		n.Percent, urgent, n.Mark, n.Window, fc, position)
	if err != nil {
		return err
	}
	for i, child := range n.Nodes {
		if err := s.insertNode(ctx, tx, child, &n.ID, false, i); err != nil {
			return err
		}
	}
	for i, child := range n.FloatingNodes {
		if err := s.insertNode(ctx, tx, child, &n.ID, true, i); err != nil {
			return err
		}
	}
	return nil
}

// Load rebuilds the stored tree, or returns nil when no snapshot exists.
// Node serials are reserved so new containers never collide with restored
// ids.
func (s *Store) Load(ctx context.Context) (*layout.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, node_type, name, num,
			layout, workspace_layout, border, border_width,
			floating, scratchpad, fullscreen,
			rect_x, rect_y, rect_w, rect_h,
			win_x, win_y, win_w, win_h,
			geom_x, geom_y, geom_w, geom_h,
			percent, urgent, mark, window, is_floating_child
		FROM nodes
		ORDER BY parent_id IS NOT NULL, parent_id, is_floating_child, position;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type row struct {
		node          *layout.Node
		parentID      *uint64
		floatingChild bool
	}
	nodes := make(map[uint64]*layout.Node)
	ordered := make([]row, 0)
	var maxID uint64
	for rows.Next() {
		var (
			id, window             uint64
			parentID               *uint64
			nodeType, num          int
			name, mark             string
			lay, wsLay, border     int
			borderWidth            int
			floating, scratch, fsm int
			rect, win, geom        layout.Rect
			percent                float64
			urgent, floatingChild  int
		)
		if err := rows.Scan(&id, &parentID, &nodeType, &name, &num,
			&lay, &wsLay, &border, &borderWidth,
			&floating, &scratch, &fsm,
			&rect.X, &rect.Y, &rect.Width, &rect.Height,
			&win.X, &win.Y, &win.Width, &win.Height,
			&geom.X, &geom.Y, &geom.Width, &geom.Height,
			&percent, &urgent, &mark, &window, &floatingChild); err != nil {
			return nil, err
		}
		node := &layout.Node{
			ID:                 id,
			Type:               layout.NodeType(nodeType),
			Name:               name,
			Num:                num,
			Layout:             layout.Layout(lay),
			WorkspaceLayout:    layout.Layout(wsLay),
			Border:             layout.BorderStyle(border),
			CurrentBorderWidth: borderWidth,
			Floating:           layout.FloatingMode(floating),
			Scratchpad:         layout.ScratchpadState(scratch),
			FullscreenMode:     fsm,
			Rect:               rect,
			WindowRect:         win,
			Geometry:           geom,
			Percent:            percent,
			Urgent:             urgent != 0,
			Mark:               mark,
			Window:             uint32(window),
		}
		nodes[id] = node
		ordered = append(ordered, row{node: node, parentID: parentID, floatingChild: floatingChild != 0})
		if id > maxID {
			maxID = id
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Link in scan order so sibling order survives; the map makes linking
	// independent of parent/child row order.
	var root *layout.Node
	for _, r := range ordered {
		if r.parentID == nil {
			root = r.node
			continue
		}
		parent, ok := nodes[*r.parentID]
		if !ok {
			return nil, fmt.Errorf("snapshot row %d references unknown parent %d", r.node.ID, *r.parentID)
		}
		if r.floatingChild {
			parent.AddFloating(r.node)
		} else {
			parent.AddChild(r.node)
		}
	}
	if root == nil {
		return nil, nil
	}
	layout.ReserveSerial(maxID)
	return root, nil
}
