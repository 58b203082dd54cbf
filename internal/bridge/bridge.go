// Package bridge is the fire-and-forget client for the remote command
// bridge, the collaborator that opens applications on the host machine.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// knownApps mirrors the bridge's own application map; anything else in an
// "open ..." utterance is treated as a search instead.
var knownApps = map[string]bool{
	"notepad":    true,
	"calculator": true,
	"paint":      true,
	"excel":      true,
	"word":       true,
	"browser":    true,
	"cmd":        true,
	"settings":   true,
	"explorer":   true,
}

// KnownApp reports whether name is routable to the bridge.
func KnownApp(name string) bool {
	return knownApps[strings.ToLower(strings.TrimSpace(name))]
}

// Client posts commands to the bridge endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New builds a bridge client. When socksAddr is non-empty, requests egress
// through that SOCKS5 proxy.
func New(url, socksAddr string) (*Client, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	if socksAddr != "" {
		dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("dial socks proxy: %w", err)
		}
		httpClient.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	}

	return &Client{url: strings.TrimSuffix(url, "/"), http: httpClient}, nil
}

// Send posts one command. Callers treat failure as a user-visible message,
// never as a fault.
func (c *Client) Send(ctx context.Context, command string) error {
	body, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/command", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s", resp.Status)
	}
	return nil
}
