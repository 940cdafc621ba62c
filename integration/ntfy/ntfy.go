package ntfy

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"plughub/device"
)

const DefaultServer = "https://ntfy.sh"

type Notify struct {
	server string
	topic  string
	client *http.Client
}

// New returns nil when no topic is configured; all methods accept a nil
// receiver and do nothing.
func New(server, topic string) *Notify {
	if topic == "" {
		return nil
	}
	if server == "" {
		server = DefaultServer
	}

	return &Notify{server: strings.TrimSuffix(server, "/"), topic: topic, client: &http.Client{}}
}

type message struct {
	title    string
	body     string
	tags     string
	priority string
	actions  string
}

func (n *Notify) send(ctx context.Context, m message) error {
	if n == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", n.server, n.topic), strings.NewReader(m.body))
	if err != nil {
		return err
	}

	req.Header.Set("Title", m.title)
	req.Header.Set("Tags", m.tags)
	req.Header.Set("Priority", m.priority)
	if m.actions != "" {
		req.Header.Set("Actions", m.actions)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (n *Notify) Presence(ctx context.Context, home bool) error {
	m := message{title: "Presence", tags: "house", priority: "1"}
	if home {
		m.body = "Home"
		m.actions = "broadcast, Set as away, extras.cmd=presence, extras.state=0, clear=true"
	} else {
		m.body = "Away"
		m.actions = "broadcast, Set as home, extras.cmd=presence, extras.state=1, clear=true"
	}

	return n.send(ctx, m)
}

// Failed reports that a device could not be switched.
func (n *Notify) Failed(ctx context.Context, name device.InternalName, cause error) error {
	return n.send(ctx, message{
		title:    fmt.Sprintf("%s in %s", name.Name(), name.Room()),
		body:     cause.Error(),
		tags:     "warning,electric_plug",
		priority: "4",
	})
}
