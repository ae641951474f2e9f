package ipc

import (
	"github.com/pablospe/i3/pkg/command"
	"github.com/pablospe/i3/pkg/layout"
)

// RegisterHandlers installs the full request table against the given
// domain state. Handlers only format memory already owned by the reactor
// thread; none of them block. render, when non-nil, is invoked after a
// command reports that visible state changed.
func RegisterHandlers(srv *Server, state *layout.State, exec command.Executor, render func()) {
	srv.Handle(MessageCommand, func(payload []byte) ([]byte, error) {
		result := exec.Run(string(payload))
		if result.NeedsRender && render != nil {
			render()
		}
		return result.Payload, nil
	})
	srv.Handle(MessageGetWorkspaces, func([]byte) ([]byte, error) {
		return layout.DumpWorkspaces(state)
	})
	srv.Handle(MessageGetOutputs, func([]byte) ([]byte, error) {
		return layout.DumpOutputs(state)
	})
	srv.Handle(MessageGetTree, func([]byte) ([]byte, error) {
		return layout.DumpTree(state)
	})
	srv.Handle(MessageGetMarks, func([]byte) ([]byte, error) {
		return layout.DumpMarks(state)
	})
	srv.Handle(MessageGetVersion, func([]byte) ([]byte, error) {
		return layout.DumpVersion()
	})
	srv.Handle(MessageGetBarConfig, func(payload []byte) ([]byte, error) {
		// Empty payload lists all bar ids; otherwise the payload is one
		// bar id and the reply has id null when it is unknown.
		if len(payload) == 0 {
			return layout.DumpBarIDs(state)
		}
		return layout.DumpBarConfig(state.BarConfig(string(payload)))
	})
}
