package layout

// BarColors holds the optional color assignments of a bar block. Empty
// strings are omitted from replies.
type BarColors struct {
	Background              string `toml:"background"`
	Statusline              string `toml:"statusline"`
	Separator               string `toml:"separator"`
	FocusedWorkspaceBorder  string `toml:"focusedWorkspaceBorder"`
	FocusedWorkspaceBg      string `toml:"focusedWorkspaceBg"`
	FocusedWorkspaceText    string `toml:"focusedWorkspaceText"`
	ActiveWorkspaceBorder   string `toml:"activeWorkspaceBorder"`
	ActiveWorkspaceBg       string `toml:"activeWorkspaceBg"`
	ActiveWorkspaceText     string `toml:"activeWorkspaceText"`
	InactiveWorkspaceBorder string `toml:"inactiveWorkspaceBorder"`
	InactiveWorkspaceBg     string `toml:"inactiveWorkspaceBg"`
	InactiveWorkspaceText   string `toml:"inactiveWorkspaceText"`
	UrgentWorkspaceBorder   string `toml:"urgentWorkspaceBorder"`
	UrgentWorkspaceBg       string `toml:"urgentWorkspaceBg"`
	UrgentWorkspaceText     string `toml:"urgentWorkspaceText"`
}

// BarConfig is one configured status bar.
type BarConfig struct {
	ID            string    `toml:"id"`
	Outputs       []string  `toml:"outputs"`
	TrayOutput    string    `toml:"trayOutput"`
	SocketPath    string    `toml:"socketPath"`
	Mode          string    `toml:"mode"`
	HiddenState   string    `toml:"hiddenState"`
	Modifier      string    `toml:"modifier"`
	Position      string    `toml:"position"`
	StatusCommand string    `toml:"statusCommand"`
	Font          string    `toml:"font"`
	Verbose       bool      `toml:"verbose"`
	Colors        BarColors `toml:"colors"`

	// Buttons and the binding mode indicator are shown unless hidden, so
	// the zero value keeps them on.
	HideWorkspaceButtons     bool `toml:"hideWorkspaceButtons"`
	HideBindingModeIndicator bool `toml:"hideBindingModeIndicator"`
}
