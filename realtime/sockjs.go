package realtime

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/google/uuid"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
)

// SockJS frame types
const (
	sockOpen      = 'o'
	sockHeartbeat = 'h'
	sockArray     = 'a'
	sockMessage   = 'm'
	sockClose     = 'c'
)

// sockFrame is one decoded SockJS transport frame.
type sockFrame struct {
	kind     byte
	payloads []string
	code     int
	reason   string
}

// TransportURL builds the SockJS raw websocket URL for an endpoint under
// baseURL: <ws-base><path>/<server-id>/<session-id>/websocket.
func TransportURL(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		return "", carpoolerrors.Wrapf(err, "invalid realtime base url %q", baseURL)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", carpoolerrors.Wrapf(carpoolerrors.ErrUnsupported, "realtime scheme %q", u.Scheme)
	}
	serverID := fmt.Sprintf("%03d", rand.IntN(1000))
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + serverID + "/" + sessionID + "/websocket"
	return u.String(), nil
}

func decodeSockFrame(msg []byte) (sockFrame, error) {
	if len(msg) == 0 {
		return sockFrame{}, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "empty sockjs frame")
	}
	f := sockFrame{kind: msg[0]}
	body := msg[1:]
	switch f.kind {
	case sockOpen, sockHeartbeat:
	case sockArray:
		if err := json.Unmarshal(body, &f.payloads); err != nil {
			return sockFrame{}, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "sockjs array frame: %v", err)
		}
	case sockMessage:
		var p string
		if err := json.Unmarshal(body, &p); err != nil {
			return sockFrame{}, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "sockjs message frame: %v", err)
		}
		f.payloads = []string{p}
	case sockClose:
		var parts []json.RawMessage
		if err := json.Unmarshal(body, &parts); err == nil && len(parts) == 2 {
			_ = json.Unmarshal(parts[0], &f.code)
			_ = json.Unmarshal(parts[1], &f.reason)
		}
	default:
		return sockFrame{}, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "unknown sockjs frame %q", f.kind)
	}
	return f, nil
}

// encodeSockPayload wraps outgoing data the way SockJS clients send it: a
// JSON array of strings.
func encodeSockPayload(data []byte) ([]byte, error) {
	return json.Marshal([]string{string(data)})
}
