package realtime

import (
	"strings"
	"testing"
	"time"

	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestEncodeConnectFrame(t *testing.T) {
	f := NewFrame(CommandConnect, "accept-version", "1.1,1.2", "Authorization", "Bearer a:b")
	require.Equal(t, "CONNECT\naccept-version:1.1,1.2\nAuthorization:Bearer a:b\n\n\x00", string(f.Encode()))
}

func TestEncodeEscapesHeaders(t *testing.T) {
	f := NewFrame(CommandSubscribe, "destination", "/queue/a:b\nc")
	require.Equal(t, "SUBSCRIBE\ndestination:/queue/a\\cb\\nc\n\n\x00", string(f.Encode()))

	frames, err := ParseFrames(f.Encode())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	v, ok := frames[0].Header("destination")
	require.True(t, ok)
	require.Equal(t, "/queue/a:b\nc", v)
}

func TestParseMessageWithHeartbeats(t *testing.T) {
	raw := "\nMESSAGE\ndestination:/user/queue/notification\nsubscription:sub-1\n\n{\"title\":\"x\"}\x00\n"
	frames, err := ParseFrames([]byte(raw))
	require.NoError(t, err)
	require.Len(t, frames, 3)
	require.True(t, frames[0].IsHeartbeat())
	require.Equal(t, CommandMessage, frames[1].Command)
	require.Equal(t, `{"title":"x"}`, string(frames[1].Body))
	require.True(t, frames[2].IsHeartbeat())
}

func TestParseContentLengthBodyWithNUL(t *testing.T) {
	raw := "MESSAGE\ncontent-length:3\n\na\x00b\x00"
	frames, err := ParseFrames([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, []byte("a\x00b"), frames[0].Body)
}

func TestParseFirstHeaderWins(t *testing.T) {
	frames, err := ParseFrames([]byte("MESSAGE\nfoo:1\nfoo:2\n\n\x00"))
	require.NoError(t, err)
	v, _ := frames[0].Header("foo")
	require.Equal(t, "1", v)
}

func TestParseCRLF(t *testing.T) {
	frames, err := ParseFrames([]byte("CONNECTED\r\nversion:1.2\r\n\r\n\x00"))
	require.NoError(t, err)
	require.Equal(t, CommandConnected, frames[0].Command)
	v, _ := frames[0].Header("version")
	require.Equal(t, "1.2", v)
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{
		"MESSAGE\nno-terminator",
		"MESSAGE\nbadheader\n\n\x00",
		"MESSAGE\n\nbody without nul",
		"MESSAGE\ncontent-length:10\n\nabc\x00",
	} {
		_, err := ParseFrames([]byte(raw))
		require.ErrorIs(t, err, carpoolerrors.ErrInvalidPayload, raw)
	}
}

func TestNegotiateHeartbeat(t *testing.T) {
	connected := func(hb string) Frame { return NewFrame(CommandConnected, "heart-beat", hb) }

	require.Equal(t, 20*time.Second, negotiateHeartbeat(10*time.Second, connected("0,20000")))
	require.Equal(t, 10*time.Second, negotiateHeartbeat(10*time.Second, connected("5000,4000")))
	require.Zero(t, negotiateHeartbeat(10*time.Second, connected("10000,0")))
	require.Zero(t, negotiateHeartbeat(0, connected("10000,10000")))
	require.Zero(t, negotiateHeartbeat(10*time.Second, NewFrame(CommandConnected)))
}

func TestDecodeSockFrames(t *testing.T) {
	f, err := decodeSockFrame([]byte("o"))
	require.NoError(t, err)
	require.Equal(t, byte(sockOpen), f.kind)

	f, err = decodeSockFrame([]byte(`a["one","two"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, f.payloads)

	f, err = decodeSockFrame([]byte(`m"solo"`))
	require.NoError(t, err)
	require.Equal(t, []string{"solo"}, f.payloads)

	f, err = decodeSockFrame([]byte(`c[3000,"Go away!"]`))
	require.NoError(t, err)
	require.Equal(t, 3000, f.code)
	require.Equal(t, "Go away!", f.reason)

	_, err = decodeSockFrame([]byte(`a[broken`))
	require.ErrorIs(t, err, carpoolerrors.ErrInvalidPayload)
	_, err = decodeSockFrame([]byte("x"))
	require.ErrorIs(t, err, carpoolerrors.ErrInvalidPayload)
	_, err = decodeSockFrame(nil)
	require.ErrorIs(t, err, carpoolerrors.ErrInvalidPayload)
}

func TestEncodeSockPayload(t *testing.T) {
	b, err := encodeSockPayload([]byte("SEND\n\n\x00"))
	require.NoError(t, err)
	require.Equal(t, `["SEND\n\n\u0000"]`, string(b))
}

func TestTransportURL(t *testing.T) {
	u, err := TransportURL("https://carpool.example.com/", "/api/ws")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "wss://carpool.example.com/api/ws/"))
	require.True(t, strings.HasSuffix(u, "/websocket"))
	parts := strings.Split(strings.TrimPrefix(u, "wss://carpool.example.com/api/ws/"), "/")
	require.Len(t, parts, 3)
	require.Len(t, parts[0], 3)
	require.Len(t, parts[1], 32)

	u, err = TransportURL("http://localhost:3000", "/api/ws")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "ws://localhost:3000/api/ws/"))

	_, err = TransportURL("ftp://x", "/api/ws")
	require.ErrorIs(t, err, carpoolerrors.ErrUnsupported)
}
