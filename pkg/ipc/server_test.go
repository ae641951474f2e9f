package ipc_test

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pablospe/i3/pkg/command"
	"github.com/pablospe/i3/pkg/ipc"
	"github.com/pablospe/i3/pkg/layout"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, v ...any) {
	l.t.Logf(format, v...)
}

func testState() *layout.State {
	state := layout.NewState()

	output := layout.NewNode(layout.TypeOutput, "LVDS1")
	output.Layout = layout.LayoutOutput
	output.Rect = layout.Rect{Width: 1280, Height: 800}

	ws := layout.NewNode(layout.TypeWorkspace, "1")
	ws.Num = 1
	ws.Layout = layout.LayoutSplitH
	ws.Rect = output.Rect

	con := layout.NewNode(layout.TypeCon, "term")
	con.Layout = layout.LayoutSplitH
	con.Mark = "scratch-term"
	con.Window = 0x1400004
	con.Percent = 1.0

	ws.AddChild(con)
	output.AddChild(ws)
	state.Root.AddChild(output)
	state.Outputs = []*layout.Output{{
		Name:             "LVDS1",
		Active:           true,
		Primary:          true,
		Rect:             output.Rect,
		Con:              output,
		CurrentWorkspace: ws,
	}}
	state.Focused = con
	state.BarConfigs = []layout.BarConfig{{
		ID:          "bar-0",
		Mode:        "dock",
		Position:    "top",
		HiddenState: "hide",
		Modifier:    "Mod4",
	}}
	return state
}

func newTestServer(t *testing.T, exec command.Executor, render func()) (*ipc.Server, string) {
	t.Helper()
	srv := ipc.NewServer(testLogger{t})
	if exec == nil {
		exec = command.Accepting()
	}
	ipc.RegisterHandlers(srv, testState(), exec, render)
	sock := filepath.Join(t.TempDir(), "ipc.sock")
	if err := srv.Start(context.Background(), sock); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv, sock
}

func dial(t *testing.T, sock string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", sock)
	if err != nil {
		t.Fatalf("dial %s: %v", sock, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func request(t *testing.T, conn net.Conn, msgType uint32, payload []byte) (uint32, []byte) {
	t.Helper()
	if err := ipc.WriteMessage(conn, msgType, payload); err != nil {
		t.Fatalf("send type %d: %v", msgType, err)
	}
	replyType, reply, err := ipc.ReadMessage(conn)
	if err != nil {
		t.Fatalf("receive reply for type %d: %v", msgType, err)
	}
	return replyType, reply
}

func subscribe(t *testing.T, conn net.Conn, names ...string) {
	t.Helper()
	payload, err := json.Marshal(names)
	if err != nil {
		t.Fatalf("marshal subscription: %v", err)
	}
	replyType, reply := request(t, conn, ipc.MessageSubscribe, payload)
	if replyType != ipc.MessageSubscribe || string(reply) != `{"success":true}` {
		t.Fatalf("unexpected subscribe reply: type=%d payload=%s", replyType, reply)
	}
}

func waitClients(t *testing.T, srv *ipc.Server, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Clients() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d clients, have %d", want, srv.Clients())
}

func TestVersionRequest(t *testing.T) {
	_, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)

	replyType, reply := request(t, conn, ipc.MessageGetVersion, nil)
	if replyType != ipc.MessageGetVersion {
		t.Fatalf("unexpected reply type %d", replyType)
	}
	var version struct {
		Major         int    `json:"major"`
		Minor         int    `json:"minor"`
		Patch         int    `json:"patch"`
		HumanReadable string `json:"human_readable"`
	}
	if err := json.Unmarshal(reply, &version); err != nil {
		t.Fatalf("unmarshal version: %v", err)
	}
	if version.Major != 4 || version.Minor != 7 || version.Patch != 0 || version.HumanReadable != "4.7" {
		t.Fatalf("unexpected version reply: %s", reply)
	}
}

func TestBarConfigRequests(t *testing.T) {
	_, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)

	_, reply := request(t, conn, ipc.MessageGetBarConfig, nil)
	var ids []string
	if err := json.Unmarshal(reply, &ids); err != nil {
		t.Fatalf("unmarshal bar ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "bar-0" {
		t.Fatalf("unexpected bar ids: %v", ids)
	}

	_, reply = request(t, conn, ipc.MessageGetBarConfig, []byte("bar-0"))
	var bar map[string]any
	if err := json.Unmarshal(reply, &bar); err != nil {
		t.Fatalf("unmarshal bar config: %v", err)
	}
	if bar["id"] != "bar-0" || bar["mode"] != "dock" {
		t.Fatalf("unexpected bar config: %s", reply)
	}

	_, reply = request(t, conn, ipc.MessageGetBarConfig, []byte("no-such-bar"))
	if err := json.Unmarshal(reply, &bar); err != nil {
		t.Fatalf("unmarshal unknown bar config: %v", err)
	}
	id, present := bar["id"]
	if !present || id != nil {
		t.Fatalf("expected id to be JSON null, got %s", reply)
	}
}

func TestTreeRequest(t *testing.T) {
	_, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)

	_, reply := request(t, conn, ipc.MessageGetTree, nil)
	var root struct {
		Name  string `json:"name"`
		Type  int    `json:"type"`
		Nodes []struct {
			Name  string `json:"name"`
			Nodes []struct {
				Name  string   `json:"name"`
				Num   int      `json:"num"`
				Focus []uint64 `json:"focus"`
				Nodes []struct {
					ID      uint64   `json:"id"`
					Mark    string   `json:"mark"`
					Layout  string   `json:"layout"`
					Percent *float64 `json:"percent"`
				} `json:"nodes"`
			} `json:"nodes"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(reply, &root); err != nil {
		t.Fatalf("unmarshal tree: %v", err)
	}
	if root.Name != "root" || len(root.Nodes) != 1 {
		t.Fatalf("unexpected tree root: %s", reply)
	}
	ws := root.Nodes[0].Nodes[0]
	if ws.Name != "1" || ws.Num != 1 {
		t.Fatalf("unexpected workspace node: %+v", ws)
	}
	con := ws.Nodes[0]
	if con.Mark != "scratch-term" || con.Layout != "splith" {
		t.Fatalf("unexpected con node: %+v", con)
	}
	if con.Percent == nil || *con.Percent != 1.0 {
		t.Fatalf("expected percent 1.0, got %v", con.Percent)
	}
	if len(ws.Focus) != 1 || ws.Focus[0] != con.ID {
		t.Fatalf("focus list does not cross-reference the child: %+v", ws)
	}
}

func TestPublishReachesSubscribedClients(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)

	connA := dial(t, sock)
	connB := dial(t, sock)
	connC := dial(t, sock)
	subscribe(t, connA, "workspace")
	subscribe(t, connB, "workspace")
	subscribe(t, connC, "workspace")

	payload := []byte(`{"change":"focus"}`)
	srv.Publish("workspace", payload)

	for _, conn := range []net.Conn{connA, connB, connC} {
		msgType, event, err := ipc.ReadMessage(conn)
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		if msgType != ipc.EventWorkspace || string(event) != string(payload) {
			t.Fatalf("unexpected event: type=%d payload=%s", msgType, event)
		}
	}
}

func TestPublishCaseInsensitiveMatch(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)
	subscribe(t, conn, "Workspace")

	srv.Publish("workspace", []byte(`{"change":"init"}`))
	msgType, _, err := ipc.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msgType != ipc.EventWorkspace {
		t.Fatalf("unexpected event type %d", msgType)
	}
}

func TestPublishSkipsUnsubscribedClient(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	subscribed := dial(t, sock)
	unsubscribed := dial(t, sock)
	subscribe(t, subscribed, "output")
	subscribe(t, unsubscribed, "window")

	srv.Publish("output", []byte(`{"change":"unspecified"}`))
	if msgType, _, err := ipc.ReadMessage(subscribed); err != nil || msgType != ipc.EventOutput {
		t.Fatalf("subscribed client: type=%d err=%v", msgType, err)
	}

	// The unsubscribed client must see its next reply immediately, not an
	// output event.
	replyType, _ := request(t, unsubscribed, ipc.MessageGetVersion, nil)
	if replyType != ipc.MessageGetVersion {
		t.Fatalf("unsubscribed client received message type %d", replyType)
	}
}

func TestDuplicateSubscriptionDeliversOnce(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)
	subscribe(t, conn, "workspace", "workspace")

	srv.Publish("workspace", []byte(`{"change":"focus"}`))
	msgType, _, err := ipc.ReadMessage(conn)
	if err != nil || msgType != ipc.EventWorkspace {
		t.Fatalf("first event: type=%d err=%v", msgType, err)
	}

	// A duplicate delivery would arrive before the version reply because
	// the reactor processes the publish completely before this request.
	replyType, _ := request(t, conn, ipc.MessageGetVersion, nil)
	if replyType != ipc.MessageGetVersion {
		t.Fatalf("expected version reply, got message type %d", replyType)
	}
}

func TestMalformedSubscribePayload(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	healthy := dial(t, sock)
	subscribe(t, healthy, "workspace")

	broken := dial(t, sock)
	replyType, reply := request(t, broken, ipc.MessageSubscribe, []byte("not-json"))
	if replyType != ipc.MessageSubscribe || string(reply) != `{"success":false}` {
		t.Fatalf("unexpected reply: type=%d payload=%s", replyType, reply)
	}

	// The failed subscribe must not disturb other clients.
	srv.Publish("workspace", []byte(`{"change":"urgent"}`))
	if msgType, _, err := ipc.ReadMessage(healthy); err != nil || msgType != ipc.EventWorkspace {
		t.Fatalf("healthy client: type=%d err=%v", msgType, err)
	}
}

func TestUnknownRequestTypeIgnored(t *testing.T) {
	_, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)

	if err := ipc.WriteMessage(conn, 42, []byte("bogus")); err != nil {
		t.Fatalf("send unknown type: %v", err)
	}
	// The connection survives and the next request is answered normally.
	replyType, _ := request(t, conn, ipc.MessageGetVersion, nil)
	if replyType != ipc.MessageGetVersion {
		t.Fatalf("expected version reply, got message type %d", replyType)
	}
}

func TestBadMagicClosesConnection(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)
	subscribe(t, conn, "workspace")
	waitClients(t, srv, 1)

	if _, err := conn.Write([]byte("xx-ipc garbage that is long enough")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	waitClients(t, srv, 0)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := ipc.ReadMessage(conn); err == nil {
		t.Fatal("expected closed connection after framing error")
	}
}

func TestDisconnectMidFlight(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	survivor := dial(t, sock)
	subscribe(t, survivor, "workspace")

	doomed := dial(t, sock)
	if err := ipc.WriteMessage(doomed, ipc.MessageSubscribe, []byte(`["workspace"]`)); err != nil {
		t.Fatalf("send subscribe: %v", err)
	}
	// Close without reading the reply.
	doomed.Close()
	waitClients(t, srv, 1)

	srv.Publish("workspace", []byte(`{"change":"empty"}`))
	if msgType, _, err := ipc.ReadMessage(survivor); err != nil || msgType != ipc.EventWorkspace {
		t.Fatalf("survivor client: type=%d err=%v", msgType, err)
	}
}

func TestCommandReplyPrecedesTriggeredEvent(t *testing.T) {
	var srv *ipc.Server
	var rendered atomic.Int32
	exec := command.Func(func(text string) command.Result {
		srv.Publish("workspace", []byte(`{"change":"`+text+`"}`))
		return command.Result{Payload: []byte(`[{"success":true}]`), NeedsRender: true}
	})
	srv, sock := newTestServer(t, exec, func() { rendered.Add(1) })

	conn := dial(t, sock)
	subscribe(t, conn, "workspace")

	replyType, reply := request(t, conn, ipc.MessageCommand, []byte("workspace 2"))
	if replyType != ipc.MessageCommand || string(reply) != `[{"success":true}]` {
		t.Fatalf("unexpected command reply: type=%d payload=%s", replyType, reply)
	}
	msgType, event, err := ipc.ReadMessage(conn)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msgType != ipc.EventWorkspace || !strings.Contains(string(event), "workspace 2") {
		t.Fatalf("unexpected event after command: type=%d payload=%s", msgType, event)
	}
	if rendered.Load() != 1 {
		t.Fatalf("expected exactly one render, got %d", rendered.Load())
	}
}

func TestStopDrainsClientsWithoutFinalMessage(t *testing.T) {
	srv, sock := newTestServer(t, nil, nil)
	conn := dial(t, sock)
	subscribe(t, conn, "workspace")
	waitClients(t, srv, 1)

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := ipc.ReadMessage(conn); err == nil {
		t.Fatal("expected connection to be closed at shutdown")
	}
}
