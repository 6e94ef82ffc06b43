package realtime

import (
	"bytes"
	"fmt"
	"strings"

	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
)

// STOMP commands used by the client
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandMessage     = "MESSAGE"
	CommandError       = "ERROR"
	CommandReceipt     = "RECEIPT"
	CommandDisconnect  = "DISCONNECT"
	CommandUnsubscribe = "UNSUBSCRIBE"
)

// Header is one STOMP header line. Order is kept because repeated headers
// are legal and the first occurrence wins.
type Header struct {
	Key   string
	Value string
}

// Frame is a STOMP frame. A frame with an empty Command is a heart-beat.
type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

// NewFrame builds a frame from alternating key/value pairs.
func NewFrame(command string, kv ...string) Frame {
	f := Frame{Command: command}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Headers = append(f.Headers, Header{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// Header returns the first value for key.
func (f Frame) Header(key string) (string, bool) {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func (f Frame) IsHeartbeat() bool {
	return f.Command == ""
}

// Encode serializes the frame, NUL-terminated.
func (f Frame) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(f.Command)
	b.WriteByte('\n')
	escape := f.Command != CommandConnect && f.Command != CommandConnected
	for _, h := range f.Headers {
		if escape {
			b.WriteString(escapeHeader(h.Key))
			b.WriteByte(':')
			b.WriteString(escapeHeader(h.Value))
		} else {
			b.WriteString(h.Key)
			b.WriteByte(':')
			b.WriteString(h.Value)
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.Write(f.Body)
	b.WriteByte(0)
	return b.Bytes()
}

// ParseFrames splits data into frames. Bare EOLs between frames are
// heart-beats and come back as empty frames.
func ParseFrames(data []byte) ([]Frame, error) {
	var frames []Frame
	for len(data) > 0 {
		if data[0] == '\n' || data[0] == '\r' {
			if data[0] == '\n' {
				frames = append(frames, Frame{})
			}
			data = data[1:]
			continue
		}
		f, rest, err := parseFrame(data)
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		data = rest
	}
	return frames, nil
}

func parseFrame(data []byte) (Frame, []byte, error) {
	headerEnd := bytes.Index(data, []byte("\n\n"))
	sepLen := 2
	if crlf := bytes.Index(data, []byte("\r\n\r\n")); crlf >= 0 && (headerEnd < 0 || crlf < headerEnd) {
		headerEnd, sepLen = crlf, 4
	}
	if headerEnd < 0 {
		return Frame{}, nil, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "stomp frame without header terminator")
	}

	lines := strings.Split(strings.ReplaceAll(string(data[:headerEnd]), "\r\n", "\n"), "\n")
	f := Frame{Command: lines[0]}
	unescape := f.Command != CommandConnect && f.Command != CommandConnected
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Frame{}, nil, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "malformed stomp header %q", line)
		}
		if unescape {
			key, value = unescapeHeader(key), unescapeHeader(value)
		}
		f.Headers = append(f.Headers, Header{Key: key, Value: value})
	}

	body := data[headerEnd+sepLen:]
	if cl, ok := f.Header("content-length"); ok {
		var n int
		if _, err := fmt.Sscanf(cl, "%d", &n); err != nil || n < 0 || n >= len(body) || body[n] != 0 {
			return Frame{}, nil, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "bad content-length %q", cl)
		}
		f.Body = append([]byte(nil), body[:n]...)
		return f, body[n+1:], nil
	}
	end := bytes.IndexByte(body, 0)
	if end < 0 {
		return Frame{}, nil, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "stomp frame without NUL terminator")
	}
	f.Body = append([]byte(nil), body[:end]...)
	return f, body[end+1:], nil
}

var (
	headerEscaper   = strings.NewReplacer("\\", `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)
	headerUnescaper = strings.NewReplacer(`\\`, "\\", `\r`, "\r", `\n`, "\n", `\c`, ":")
)

func escapeHeader(s string) string   { return headerEscaper.Replace(s) }
func unescapeHeader(s string) string { return headerUnescaper.Replace(s) }
