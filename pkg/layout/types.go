package layout

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// NodeType enumerates container kinds in the tree.
type NodeType int

const (
	TypeRoot NodeType = iota
	TypeOutput
	TypeCon
	TypeFloatingCon
	TypeWorkspace
	TypeDockArea
)

// Layout enumerates split/stacking modes of a container.
type Layout int

const (
	LayoutDefault Layout = iota
	LayoutSplitH
	LayoutSplitV
	LayoutStacked
	LayoutTabbed
	LayoutDockArea
	LayoutOutput
)

// Token returns the wire token for a layout value. LayoutDefault has no
// token in tree dumps; serializing it indicates a modeling bug upstream.
func (l Layout) Token() (string, error) {
	switch l {
	case LayoutSplitH:
		return "splith", nil
	case LayoutSplitV:
		return "splitv", nil
	case LayoutStacked:
		return "stacked", nil
	case LayoutTabbed:
		return "tabbed", nil
	case LayoutDockArea:
		return "dockarea", nil
	case LayoutOutput:
		return "output", nil
	}
	return "", fmt.Errorf("layout value %d has no token", int(l))
}

// BorderStyle enumerates window border modes.
type BorderStyle int

const (
	BorderNormal BorderStyle = iota
	BorderNone
	BorderPixel
)

func (b BorderStyle) Token() (string, error) {
	switch b {
	case BorderNormal:
		return "normal", nil
	case BorderNone:
		return "none", nil
	case BorderPixel:
		return "pixel", nil
	}
	return "", fmt.Errorf("border style value %d has no token", int(b))
}

// FloatingMode enumerates the floating state of a container.
type FloatingMode int

const (
	FloatingAutoOff FloatingMode = iota
	FloatingAutoOn
	FloatingUserOff
	FloatingUserOn
)

func (f FloatingMode) Token() (string, error) {
	switch f {
	case FloatingAutoOff:
		return "auto_off", nil
	case FloatingAutoOn:
		return "auto_on", nil
	case FloatingUserOff:
		return "user_off", nil
	case FloatingUserOn:
		return "user_on", nil
	}
	return "", fmt.Errorf("floating value %d has no token", int(f))
}

// ScratchpadState enumerates scratchpad membership of a container.
type ScratchpadState int

const (
	ScratchpadNone ScratchpadState = iota
	ScratchpadFresh
	ScratchpadChanged
)

func (s ScratchpadState) Token() (string, error) {
	switch s {
	case ScratchpadNone:
		return "none", nil
	case ScratchpadFresh:
		return "fresh", nil
	case ScratchpadChanged:
		return "changed", nil
	}
	return "", fmt.Errorf("scratchpad state value %d has no token", int(s))
}

// Rect is a screen-space rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Node is one container in the tree. Ordinary children live in Nodes,
// floating children in FloatingNodes, and Focus lists children in focus
// order (head = most recently focused).
type Node struct {
	ID   uint64
	Type NodeType
	Name string

	// Num is the workspace number, or -1 for named workspaces. Only
	// meaningful when Type == TypeWorkspace.
	Num int

	Layout             Layout
	WorkspaceLayout    Layout
	Border             BorderStyle
	CurrentBorderWidth int
	Floating           FloatingMode
	Scratchpad         ScratchpadState
	FullscreenMode     int

	Rect       Rect
	WindowRect Rect
	Geometry   Rect

	Percent float64
	Urgent  bool
	Mark    string

	// Window is the managed window id, or 0 when the container holds no
	// window.
	Window uint32

	Parent        *Node
	Nodes         []*Node
	FloatingNodes []*Node
	Focus         []*Node
}

var serial atomic.Uint64

// NewNode allocates a container with a fresh process-lifetime unique id.
func NewNode(t NodeType, name string) *Node {
	n := &Node{Type: t, Name: name, Num: -1}
	n.ID = serial.Add(1)
	return n
}

// ReserveSerial makes sure future node ids are allocated above id. Used
// when restoring a persisted tree.
func ReserveSerial(id uint64) {
	for {
		cur := serial.Load()
		if cur >= id || serial.CompareAndSwap(cur, id) {
			return
		}
	}
}

// AddChild appends child at the tail of n's ordinary children and at the
// tail of its focus order.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Nodes = append(n.Nodes, child)
	n.Focus = append(n.Focus, child)
}

// AddFloating appends child to n's floating children.
func (n *Node) AddFloating(child *Node) {
	child.Parent = n
	n.FloatingNodes = append(n.FloatingNodes, child)
	n.Focus = append(n.Focus, child)
}

// IsSplit reports whether the container lays out multiple children side
// by side.
func (n *Node) IsSplit() bool {
	return n.Layout == LayoutSplitH || n.Layout == LayoutSplitV
}

// Workspace walks up the tree to the enclosing workspace, or nil.
func (n *Node) Workspace() *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == TypeWorkspace {
			return cur
		}
	}
	return nil
}

// IsInternal reports whether the container is an implementation detail
// that should be hidden from workspace listings.
func (n *Node) IsInternal() bool {
	return strings.HasPrefix(n.Name, "__")
}

// Output models one display in the topology list.
type Output struct {
	Name    string
	Active  bool
	Primary bool
	Rect    Rect

	// Con is the output's container in the tree, nil for disabled
	// outputs.
	Con *Node

	// CurrentWorkspace is the workspace visible on this output, nil when
	// the output shows none.
	CurrentWorkspace *Node
}

// State is the live domain model the IPC handlers serialize. It is owned
// by the reactor thread; handlers only read it.
type State struct {
	Root       *Node
	Outputs    []*Output
	Focused    *Node
	BarConfigs []BarConfig
}

// NewState builds a state with an empty root container.
func NewState() *State {
	root := NewNode(TypeRoot, "root")
	root.Layout = LayoutSplitH
	root.WorkspaceLayout = LayoutDefault
	return &State{Root: root, Focused: root}
}

// Marks collects every mark assigned in the tree, in depth-first order.
func (s *State) Marks() []string {
	marks := make([]string, 0)
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Mark != "" {
			marks = append(marks, n.Mark)
		}
		for _, child := range n.Nodes {
			walk(child)
		}
		for _, child := range n.FloatingNodes {
			walk(child)
		}
	}
	if s.Root != nil {
		walk(s.Root)
	}
	return marks
}

// BarConfig looks up a bar block by id, or nil.
func (s *State) BarConfig(id string) *BarConfig {
	for i := range s.BarConfigs {
		if s.BarConfigs[i].ID == id {
			return &s.BarConfigs[i]
		}
	}
	return nil
}
