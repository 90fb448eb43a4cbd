// Package gelf ships zerolog output to a Graylog input as GELF 1.1 over UDP.
package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP and implements io.Writer so it can
// sit next to other zerolog outputs in a zerolog.MultiLevelWriter. Each
// Write is expected to hold one zerolog JSON event.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// syslog severities by zerolog level name.
var levels = map[string]int{
	"trace": 7,
	"debug": 7,
	"info":  6,
	"warn":  4,
	"error": 3,
	"fatal": 2,
	"panic": 1,
}

// Message converts one zerolog JSON line into a GELF message. Lines that
// are not JSON objects become the short message as is.
func (w *Writer) Message(p []byte, now time.Time) map[string]any {
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(now.UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		msg["short_message"] = strings.TrimRight(string(p), "\n")
		return msg
	}

	short, _ := event["message"].(string)
	if short == "" {
		short = "(no message)"
	}
	msg["short_message"] = short
	if lvl, ok := event["level"].(string); ok {
		if n, ok := levels[lvl]; ok {
			msg["level"] = n
		}
	}
	if ts, ok := event["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg["timestamp"] = float64(t.UnixNano()) / 1e9
		}
	}
	for k, v := range event {
		switch k {
		case "message", "level", "time":
			continue
		case "id":
			// GELF reserves _id.
			k = "field_id"
		}
		msg["_"+k] = v
	}
	return msg
}

// Write implements io.Writer. Each call sends one GELF message.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.Message(p, time.Now()))
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}
