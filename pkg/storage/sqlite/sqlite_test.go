package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pablospe/i3/pkg/layout"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "layout.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	root := layout.NewNode(layout.TypeRoot, "root")
	root.Layout = layout.LayoutSplitH

	output := layout.NewNode(layout.TypeOutput, "VGA1")
	output.Layout = layout.LayoutOutput
	output.Rect = layout.Rect{Width: 1920, Height: 1080}

	ws := layout.NewNode(layout.TypeWorkspace, "1")
	ws.Num = 1
	ws.Layout = layout.LayoutStacked
	ws.Urgent = true

	con := layout.NewNode(layout.TypeCon, "editor")
	con.Layout = layout.LayoutSplitV
	con.Mark = "edit"
	con.Window = 77
	con.Percent = 0.25
	con.Border = layout.BorderPixel
	con.CurrentBorderWidth = 2

	float := layout.NewNode(layout.TypeFloatingCon, "dialog")
	float.Layout = layout.LayoutSplitH
	float.Floating = layout.FloatingUserOn

	ws.AddChild(con)
	ws.AddFloating(float)
	output.AddChild(ws)
	root.AddChild(output)

	if err := store.Save(ctx, root); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored == nil {
		t.Fatal("expected a restored tree")
	}
	if restored.ID != root.ID || restored.Name != "root" {
		t.Fatalf("unexpected root: %+v", restored)
	}
	if len(restored.Nodes) != 1 {
		t.Fatalf("expected 1 output child, got %d", len(restored.Nodes))
	}

	gotOutput := restored.Nodes[0]
	if gotOutput.Name != "VGA1" || gotOutput.Rect != output.Rect {
		t.Fatalf("unexpected output: %+v", gotOutput)
	}
	gotWS := gotOutput.Nodes[0]
	if gotWS.Num != 1 || gotWS.Layout != layout.LayoutStacked || !gotWS.Urgent {
		t.Fatalf("unexpected workspace: %+v", gotWS)
	}
	gotCon := gotWS.Nodes[0]
	if gotCon.Mark != "edit" || gotCon.Window != 77 || gotCon.Percent != 0.25 {
		t.Fatalf("unexpected con: %+v", gotCon)
	}
	if gotCon.Border != layout.BorderPixel || gotCon.CurrentBorderWidth != 2 {
		t.Fatalf("border not restored: %+v", gotCon)
	}
	if gotCon.Parent != gotWS {
		t.Fatal("parent link not rebuilt")
	}
	if len(gotWS.FloatingNodes) != 1 || gotWS.FloatingNodes[0].Floating != layout.FloatingUserOn {
		t.Fatalf("floating child not restored: %+v", gotWS.FloatingNodes)
	}

	// Fresh nodes must not collide with restored ids.
	fresh := layout.NewNode(layout.TypeCon, "fresh")
	if fresh.ID <= float.ID {
		t.Fatalf("expected fresh id above %d, got %d", float.ID, fresh.ID)
	}
}

func TestLoadEmpty(t *testing.T) {
	store := openStore(t)
	root, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if root != nil {
		t.Fatalf("expected nil tree for empty store, got %+v", root)
	}
}

func TestSaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first := layout.NewNode(layout.TypeRoot, "root")
	first.Layout = layout.LayoutSplitH
	child := layout.NewNode(layout.TypeCon, "old")
	child.Layout = layout.LayoutSplitH
	first.AddChild(child)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	second := layout.NewNode(layout.TypeRoot, "root")
	second.Layout = layout.LayoutSplitH
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	restored, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if restored.ID != second.ID || len(restored.Nodes) != 0 {
		t.Fatalf("old snapshot leaked into load: %+v", restored)
	}
}
