package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ResolvePath picks the rendezvous path: the explicit override wins, then
// the I3SOCK environment variable, then a per-process default under the
// user runtime directory.
func ResolvePath(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv("I3SOCK"); env != "" {
		return env
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "i3", fmt.Sprintf("ipc-socket.%d", os.Getpid()))
}

// createSocket binds a unix stream socket at path, creating missing
// parent directories and unlinking a stale socket file first.
func createSocket(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unlink stale socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return listener, nil
}

// removeSocket is best effort: a leftover socket file is unlinked on the
// next start anyway.
func removeSocket(path string) {
	_ = os.Remove(path)
}

// activationListeners adopts stream sockets handed to the process by a
// socket-activation supervisor (LISTEN_PID / LISTEN_FDS, descriptors
// starting at 3). Connections arriving on them are indistinguishable from
// ones on the self-created socket.
func activationListeners(logger Logger) []net.Listener {
	pid, err := strconv.Atoi(os.Getenv("LISTEN_PID"))
	if err != nil || pid != os.Getpid() {
		return nil
	}
	count, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || count <= 0 {
		return nil
	}
	listeners := make([]net.Listener, 0, count)
	for fd := 3; fd < 3+count; fd++ {
		file := os.NewFile(uintptr(fd), fmt.Sprintf("listen-fd-%d", fd))
		if file == nil {
			continue
		}
		listener, err := net.FileListener(file)
		_ = file.Close()
		if err != nil {
			if logger != nil {
				logger.Printf("ipc: activation fd %d unusable: %v", fd, err)
			}
			continue
		}
		listeners = append(listeners, listener)
	}
	return listeners
}
