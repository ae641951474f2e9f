package ipc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// parseSubscriptions decodes a JSON array of event-name strings from
// payload, appending each name to client's subscription list as it is
// parsed. Names are stored verbatim; matching is case-insensitive at
// publish time. A failure partway through leaves the names parsed so far
// in place.
func parseSubscriptions(client *Client, payload []byte) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("expected array of event names, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected event name string, got %v", tok)
		}
		client.events = append(client.events, name)
	}
	_, err = dec.Token()
	return err
}
