package events

import (
	"encoding/json"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Bus is a reconnecting websocket connection to the UI hub.
type Bus struct {
	url    string
	reconn time.Duration

	wmu  sync.Mutex
	conn *ws.Conn
}

// NewBus dials the hub. reconn is the pause between reconnect attempts.
func NewBus(wsURL string, reconn time.Duration) (*Bus, error) {
	if reconn <= 0 {
		reconn = time.Second
	}

	conn, _, err := ws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}

	log.Info("connected to ui bus", "url", wsURL)
	return &Bus{url: wsURL, reconn: reconn, conn: conn}, nil
}

// Read blocks for the next event, reconnecting on a closed connection.
func (b *Bus) Read() (*Event, error) {
	for {
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			if !isClosed(err) {
				return nil, err
			}
			log.Warn("ui bus closed, reconnecting", "err", err)
			b.redial()
			continue
		}

		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Warn("malformed ui event", "err", err)
			continue
		}
		return &ev, nil
	}
}

// Emit writes one event. Safe for concurrent use.
func (b *Bus) Emit(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.conn.WriteMessage(ws.TextMessage, data)
}

func (b *Bus) Close() error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.conn.Close()
}

func (b *Bus) redial() {
	for {
		conn, _, err := ws.DefaultDialer.Dial(b.url, nil)
		if err == nil {
			b.wmu.Lock()
			b.conn = conn
			b.wmu.Unlock()
			return
		}
		time.Sleep(b.reconn)
	}
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
