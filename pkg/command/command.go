// Package command defines the boundary to the host's command executor.
// The IPC core forwards raw command text and relays the result payload
// without interpreting either.
package command

// Result is the outcome of executing one command line. Payload is the
// executor's JSON result, relayed to the requesting client unmodified.
type Result struct {
	Payload     []byte
	NeedsRender bool
}

// Executor runs command text against the host.
type Executor interface {
	Run(text string) Result
}

// Func adapts a plain function to Executor.
type Func func(text string) Result

func (f Func) Run(text string) Result { return f(text) }

// Accepting returns an executor that acknowledges every command without
// side effects. Used until a real command language is wired in.
func Accepting() Executor {
	return Func(func(string) Result {
		return Result{Payload: []byte(`[{"success":true}]`)}
	})
}
