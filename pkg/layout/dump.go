package layout

import (
	"encoding/json"
	"fmt"
)

// Version constants reported by GET_VERSION.
const (
	MajorVersion = 4
	MinorVersion = 7
	PatchVersion = 0
	Version      = "4.7"
)

func rectMap(r Rect) map[string]any {
	return map[string]any{
		"x":      r.X,
		"y":      r.Y,
		"width":  r.Width,
		"height": r.Height,
	}
}

func workspaceLayoutToken(l Layout) (string, error) {
	switch l {
	case LayoutDefault:
		return "default", nil
	case LayoutStacked:
		return "stacked", nil
	case LayoutTabbed:
		return "tabbed", nil
	}
	return "", fmt.Errorf("workspace_layout value %d has no token", int(l))
}

func nodeMap(n *Node, focused *Node) (map[string]any, error) {
	layoutToken, err := n.Layout.Token()
	if err != nil {
		return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name, err)
	}
	wsLayout, err := workspaceLayoutToken(n.WorkspaceLayout)
	if err != nil {
		return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name, err)
	}
	borderToken, err := n.Border.Token()
	if err != nil {
		return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name, err)
	}
	floatingToken, err := n.Floating.Token()
	if err != nil {
		return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name, err)
	}
	scratchpadToken, err := n.Scratchpad.Token()
	if err != nil {
		return nil, fmt.Errorf("node %d (%s): %w", n.ID, n.Name, err)
	}

	orientation := "none"
	if n.IsSplit() {
		if n.Layout == LayoutSplitH {
			orientation = "horizontal"
		} else {
			orientation = "vertical"
		}
	}
	lastSplit := "splith"
	if n.Layout == LayoutSplitV {
		lastSplit = "splitv"
	}

	m := map[string]any{
		"id":                   n.ID,
		"type":                 int(n.Type),
		"orientation":          orientation,
		"scratchpad_state":     scratchpadToken,
		"urgent":               n.Urgent,
		"focused":              n == focused,
		"layout":               layoutToken,
		"workspace_layout":     wsLayout,
		"last_split_layout":    lastSplit,
		"border":               borderToken,
		"current_border_width": n.CurrentBorderWidth,
		"rect":                 rectMap(n.Rect),
		"window_rect":          rectMap(n.WindowRect),
		"geometry":             rectMap(n.Geometry),
		"name":                 n.Name,
		"fullscreen_mode":      n.FullscreenMode,
		"floating":             floatingToken,
		"swallows":             []any{},
	}
	if n.Percent == 0 {
		m["percent"] = nil
	} else {
		m["percent"] = n.Percent
	}
	if n.Mark != "" {
		m["mark"] = n.Mark
	}
	if n.Type == TypeWorkspace {
		m["num"] = n.Num
	}
	if n.Window == 0 {
		m["window"] = nil
	} else {
		m["window"] = n.Window
	}

	children := make([]any, 0, len(n.Nodes))
	for _, child := range n.Nodes {
		cm, err := nodeMap(child, focused)
		if err != nil {
			return nil, err
		}
		children = append(children, cm)
	}
	m["nodes"] = children

	floating := make([]any, 0, len(n.FloatingNodes))
	for _, child := range n.FloatingNodes {
		cm, err := nodeMap(child, focused)
		if err != nil {
			return nil, err
		}
		floating = append(floating, cm)
	}
	m["floating_nodes"] = floating

	// Focus order is serialized as node ids only. The ids are opaque and
	// cross-reference child payloads within the same reply.
	focusIDs := make([]uint64, 0, len(n.Focus))
	for _, ref := range n.Focus {
		focusIDs = append(focusIDs, ref.ID)
	}
	m["focus"] = focusIDs

	return m, nil
}

// DumpTree serializes the full container tree.
func DumpTree(s *State) ([]byte, error) {
	m, err := nodeMap(s.Root, s.Focused)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// DumpWorkspaces serializes the workspace listing.
func DumpWorkspaces(s *State) ([]byte, error) {
	focusedWS := (*Node)(nil)
	if s.Focused != nil {
		focusedWS = s.Focused.Workspace()
	}
	workspaces := make([]any, 0)
	for _, out := range s.Outputs {
		if out.Con == nil || out.Con.IsInternal() {
			continue
		}
		for _, ws := range out.Con.Nodes {
			if ws.Type != TypeWorkspace {
				continue
			}
			m := map[string]any{
				"name":    ws.Name,
				"visible": ws == out.CurrentWorkspace,
				"focused": ws == focusedWS,
				"rect":    rectMap(ws.Rect),
				"output":  out.Name,
				"urgent":  ws.Urgent,
			}
			if ws.Num < 0 {
				m["num"] = nil
			} else {
				m["num"] = ws.Num
			}
			workspaces = append(workspaces, m)
		}
	}
	return json.Marshal(workspaces)
}

// DumpOutputs serializes the output topology.
func DumpOutputs(s *State) ([]byte, error) {
	outputs := make([]any, 0, len(s.Outputs))
	for _, out := range s.Outputs {
		m := map[string]any{
			"name":    out.Name,
			"active":  out.Active,
			"primary": out.Primary,
			"rect":    rectMap(out.Rect),
		}
		if out.CurrentWorkspace != nil {
			m["current_workspace"] = out.CurrentWorkspace.Name
		} else {
			m["current_workspace"] = nil
		}
		outputs = append(outputs, m)
	}
	return json.Marshal(outputs)
}

// DumpMarks serializes all assigned marks.
func DumpMarks(s *State) ([]byte, error) {
	return json.Marshal(s.Marks())
}

// DumpVersion serializes the static version report.
func DumpVersion() ([]byte, error) {
	return json.Marshal(map[string]any{
		"major":          MajorVersion,
		"minor":          MinorVersion,
		"patch":          PatchVersion,
		"human_readable": Version,
	})
}

// DumpBarIDs serializes the list of configured bar ids.
func DumpBarIDs(s *State) ([]byte, error) {
	ids := make([]string, 0, len(s.BarConfigs))
	for i := range s.BarConfigs {
		ids = append(ids, s.BarConfigs[i].ID)
	}
	return json.Marshal(ids)
}

// DumpBarConfig serializes one bar block. A nil config yields an object
// whose id field is JSON null, telling the client the id was unknown.
func DumpBarConfig(bar *BarConfig) ([]byte, error) {
	if bar == nil {
		return json.Marshal(map[string]any{"id": nil})
	}
	m := map[string]any{
		"id":                     bar.ID,
		"mode":                   bar.Mode,
		"hidden_state":           bar.HiddenState,
		"modifier":               bar.Modifier,
		"position":               bar.Position,
		"workspace_buttons":      !bar.HideWorkspaceButtons,
		"binding_mode_indicator": !bar.HideBindingModeIndicator,
		"verbose":                bar.Verbose,
	}
	if len(bar.Outputs) > 0 {
		m["outputs"] = bar.Outputs
	}
	setIfPresent := func(key, val string) {
		if val != "" {
			m[key] = val
		}
	}
	setIfPresent("tray_output", bar.TrayOutput)
	setIfPresent("socket_path", bar.SocketPath)
	setIfPresent("status_command", bar.StatusCommand)
	setIfPresent("font", bar.Font)

	colors := map[string]any{}
	setColor := func(key, val string) {
		if val != "" {
			colors[key] = val
		}
	}
	setColor("background", bar.Colors.Background)
	setColor("statusline", bar.Colors.Statusline)
	setColor("separator", bar.Colors.Separator)
	setColor("focused_workspace_border", bar.Colors.FocusedWorkspaceBorder)
	setColor("focused_workspace_bg", bar.Colors.FocusedWorkspaceBg)
	setColor("focused_workspace_text", bar.Colors.FocusedWorkspaceText)
	setColor("active_workspace_border", bar.Colors.ActiveWorkspaceBorder)
	setColor("active_workspace_bg", bar.Colors.ActiveWorkspaceBg)
	setColor("active_workspace_text", bar.Colors.ActiveWorkspaceText)
	setColor("inactive_workspace_border", bar.Colors.InactiveWorkspaceBorder)
	setColor("inactive_workspace_bg", bar.Colors.InactiveWorkspaceBg)
	setColor("inactive_workspace_text", bar.Colors.InactiveWorkspaceText)
	setColor("urgent_workspace_border", bar.Colors.UrgentWorkspaceBorder)
	setColor("urgent_workspace_bg", bar.Colors.UrgentWorkspaceBg)
	setColor("urgent_workspace_text", bar.Colors.UrgentWorkspaceText)
	m["colors"] = colors

	return json.Marshal(m)
}
