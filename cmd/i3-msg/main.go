// i3-msg sends one IPC message to a running i3d and prints the reply.
// With -t subscribe and -m it keeps printing incoming events afterwards.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/pablospe/i3/pkg/ipc"
)

var messageTypes = map[string]uint32{
	"command":        ipc.MessageCommand,
	"get_workspaces": ipc.MessageGetWorkspaces,
	"subscribe":      ipc.MessageSubscribe,
	"get_outputs":    ipc.MessageGetOutputs,
	"get_tree":       ipc.MessageGetTree,
	"get_marks":      ipc.MessageGetMarks,
	"get_bar_config": ipc.MessageGetBarConfig,
	"get_version":    ipc.MessageGetVersion,
}

func main() {
	typeName := flag.String("t", "command", "Message type to send")
	socket := flag.String("s", "", "IPC socket path (defaults to $I3SOCK)")
	monitor := flag.Bool("m", false, "Keep printing events after a subscribe reply")
	quiet := flag.Bool("q", false, "Suppress reply output")
	flag.Parse()

	msgType, ok := messageTypes[*typeName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown message type %q\n", *typeName)
		os.Exit(1)
	}

	path := ipc.ResolvePath(*socket)
	conn, err := net.Dial("unix", path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to %s: %v\n", path, err)
		os.Exit(1)
	}
	defer conn.Close()

	payload := strings.Join(flag.Args(), " ")
	if err := ipc.WriteMessage(conn, msgType, []byte(payload)); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		os.Exit(1)
	}

	replyType, reply, err := ipc.ReadMessage(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "receive failed: %v\n", err)
		os.Exit(1)
	}
	if replyType != msgType {
		fmt.Fprintf(os.Stderr, "unexpected reply type %d\n", replyType)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Println(string(reply))
	}

	if msgType != ipc.MessageSubscribe || !*monitor {
		return
	}
	for {
		eventType, event, err := ipc.ReadMessage(conn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d %s\n", eventType&^ipc.EventMask, string(event))
	}
}
