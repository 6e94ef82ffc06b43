// Package realtime keeps the notification channel to the backend's STOMP
// broker, reached over the SockJS websocket transport.
package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultHandshakeTimeout = 10 * time.Second

// MessageHandler receives every decoded notification payload.
type MessageHandler func(payload any)

// Channel holds at most one live broker connection.
type Channel struct {
	baseURL          string
	path             string
	topic            string
	heartbeat        time.Duration
	handshakeTimeout time.Duration
	dialer           *websocket.Dialer

	mu   sync.Mutex
	conn *connection
}

// ChannelOption defines a function type to modify the Channel instance.
type ChannelOption func(*Channel)

func WithDialer(dialer *websocket.Dialer) ChannelOption {
	return func(c *Channel) {
		c.dialer = dialer
	}
}

func WithHandshakeTimeout(timeout time.Duration) ChannelOption {
	return func(c *Channel) {
		c.handshakeTimeout = timeout
	}
}

func NewChannel(baseURL string, cfg config.RealtimeConfig, options ...ChannelOption) (*Channel, error) {
	if baseURL == "" {
		return nil, errors.New("[NewChannel] base url is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewChannel] realtime config is required")
	}
	c := &Channel{
		baseURL:          baseURL,
		path:             cfg.GetRealtimePath(),
		topic:            cfg.GetNotificationTopic(),
		heartbeat:        config.GetEnvDuration(cfg.GetHeartbeat(), 10*time.Second),
		handshakeTimeout: defaultHandshakeTimeout,
		dialer:           &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Connected reports whether a live connection is held.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.isDone()
}

// Connect opens the transport, authenticates with token and subscribes to
// the notification topic. An existing connection is closed first.
// onMessage runs on the connection's read goroutine and must not call
// Disconnect synchronously.
func (c *Channel) Connect(ctx context.Context, token string, onMessage MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		log.Debug().Msg("realtime connect while connected, closing previous connection")
		c.conn.shutdown()
		c.conn = nil
	}

	conn, err := c.open(ctx, token)
	if err != nil {
		metrics.RecordRealtimeConnect("error")
		return err
	}
	metrics.RecordRealtimeConnect("ok")
	c.conn = conn

	conn.wg.Add(1)
	go func() {
		defer conn.wg.Done()
		conn.readLoop(onMessage)
	}()
	if conn.heartbeat > 0 {
		conn.wg.Add(1)
		go func() {
			defer conn.wg.Done()
			conn.heartbeatLoop()
		}()
	}
	log.Info().Str("topic", c.topic).Msg("realtime channel connected")
	return nil
}

// Disconnect closes the connection if there is one. It is safe to call at
// any time, any number of times.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	conn.shutdown()
	log.Info().Msg("realtime channel disconnected")
}

func (c *Channel) open(ctx context.Context, token string) (*connection, error) {
	endpoint, err := TransportURL(c.baseURL, c.path)
	if err != nil {
		return nil, errors.Wrap(err, "[Channel.Connect]")
	}

	ws, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrHandshake), "[Channel.Connect] websocket dial")
	}

	conn := &connection{ws: ws, done: make(chan struct{})}
	if err := conn.handshake(ctx, token, c.topic, c.heartbeat, c.handshakeTimeout); err != nil {
		conn.terminate()
		return nil, errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrHandshake), "[Channel.Connect]")
	}
	return conn, nil
}

// connection is one websocket plus its goroutines.
type connection struct {
	ws             *websocket.Conn
	writeMu        sync.Mutex
	subscriptionID string
	heartbeat      time.Duration

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

func (conn *connection) handshake(ctx context.Context, token, topic string, heartbeat, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.ws.SetReadDeadline(deadline)
	defer func() { _ = conn.ws.SetReadDeadline(time.Time{}) }()

	f, err := conn.readSock()
	if err != nil {
		return err
	}
	if f.kind != sockOpen {
		return errors.Errorf("expected sockjs open frame, got %q", f.kind)
	}

	hb := strconv.FormatInt(heartbeat.Milliseconds(), 10)
	err = conn.send(NewFrame(CommandConnect,
		"accept-version", "1.1,1.2",
		"heart-beat", hb+","+hb,
		"Authorization", "Bearer "+token,
	))
	if err != nil {
		return err
	}

	connected, err := conn.awaitConnected()
	if err != nil {
		return err
	}
	conn.heartbeat = negotiateHeartbeat(heartbeat, connected)

	conn.subscriptionID = "sub-" + uuid.NewString()
	return conn.send(NewFrame(CommandSubscribe,
		"id", conn.subscriptionID,
		"destination", topic,
		"ack", "auto",
	))
}

func (conn *connection) awaitConnected() (Frame, error) {
	for {
		f, err := conn.readSock()
		if err != nil {
			return Frame{}, err
		}
		if f.kind == sockClose {
			return Frame{}, errors.Errorf("transport closed during handshake: %d %s", f.code, f.reason)
		}
		for _, p := range f.payloads {
			frames, err := ParseFrames([]byte(p))
			if err != nil {
				return Frame{}, err
			}
			for _, fr := range frames {
				switch fr.Command {
				case CommandConnected:
					return fr, nil
				case CommandError:
					msg, _ := fr.Header("message")
					return Frame{}, errors.Errorf("broker rejected connection: %s", strings.TrimSpace(msg+" "+string(fr.Body)))
				}
			}
		}
	}
}

func (conn *connection) readSock() (sockFrame, error) {
	for {
		_, msg, err := conn.ws.ReadMessage()
		if err != nil {
			return sockFrame{}, err
		}
		f, err := decodeSockFrame(msg)
		if err != nil {
			return sockFrame{}, err
		}
		if f.kind == sockHeartbeat {
			continue
		}
		return f, nil
	}
}

func (conn *connection) readLoop(onMessage MessageHandler) {
	defer conn.terminate()
	for {
		f, err := conn.readSock()
		if err != nil {
			if !conn.isDone() {
				log.Warn().Err(err).Msg("realtime connection lost")
			}
			return
		}
		if f.kind == sockClose {
			log.Info().Int("code", f.code).Str("reason", f.reason).Msg("realtime transport closed by server")
			return
		}
		for _, p := range f.payloads {
			frames, err := ParseFrames([]byte(p))
			if err != nil {
				log.Warn().Err(err).Msg("dropping malformed stomp payload")
				continue
			}
			for _, fr := range frames {
				conn.dispatch(fr, onMessage)
			}
		}
	}
}

func (conn *connection) dispatch(f Frame, onMessage MessageHandler) {
	switch f.Command {
	case CommandMessage:
		var payload any
		if err := json.Unmarshal(f.Body, &payload); err != nil {
			log.Warn().Err(err).Msg("dropping undecodable notification")
			return
		}
		metrics.RecordRealtimeMessage()
		if onMessage != nil {
			onMessage(payload)
		}
	case CommandError:
		msg, _ := f.Header("message")
		log.Error().Str("message", msg).Msg("broker error frame")
	}
}

func (conn *connection) heartbeatLoop() {
	ticker := time.NewTicker(conn.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-conn.done:
			return
		case <-ticker.C:
			if err := conn.write([]byte("\n")); err != nil {
				log.Debug().Err(err).Msg("realtime heart-beat failed")
				return
			}
		}
	}
}

func (conn *connection) send(f Frame) error {
	return conn.write(f.Encode())
}

func (conn *connection) write(data []byte) error {
	payload, err := encodeSockPayload(data)
	if err != nil {
		return err
	}
	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	return conn.ws.WriteMessage(websocket.TextMessage, payload)
}

func (conn *connection) isDone() bool {
	select {
	case <-conn.done:
		return true
	default:
		return false
	}
}

// shutdown says goodbye to the broker, closes the socket and waits for the
// connection's goroutines.
func (conn *connection) shutdown() {
	if !conn.isDone() {
		if err := conn.send(NewFrame(CommandDisconnect, "receipt", "disconnect-"+uuid.NewString())); err != nil {
			log.Debug().Err(err).Msg("could not send DISCONNECT")
		}
		conn.writeMu.Lock()
		_ = conn.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.writeMu.Unlock()
	}
	conn.terminate()
	conn.wg.Wait()
}

func (conn *connection) terminate() {
	conn.doneOnce.Do(func() {
		close(conn.done)
		_ = conn.ws.Close()
	})
}

// negotiateHeartbeat returns how often the client must send heart-beats:
// zero when either side declines, otherwise the larger of the two values.
func negotiateHeartbeat(client time.Duration, connected Frame) time.Duration {
	hb, ok := connected.Header("heart-beat")
	if !ok || client <= 0 {
		return 0
	}
	_, sy, found := strings.Cut(hb, ",")
	if !found {
		return 0
	}
	serverWants, err := strconv.Atoi(strings.TrimSpace(sy))
	if err != nil || serverWants <= 0 {
		return 0
	}
	return max(client, time.Duration(serverWants)*time.Millisecond)
}
