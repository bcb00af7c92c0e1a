// Package ws holds the websocket plumbing shared by the streaming endpoints: the handshake,
// error replies and the pump that forwards runner output to a connection.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"skyshade.ai/internal/protocol"
)

const (
	helloTimeout = 5 * time.Second
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

var (
	ErrBadHello   = errors.New("expected HELLO")
	ErrBadVersion = errors.New("unsupported protocol_version")
)

func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
	}
}

// ReadHello waits for the client's HELLO. On a malformed hello or a version mismatch the
// client is told why and the connection is closed with a policy violation.
func ReadHello(conn *websocket.Conn) (protocol.HelloMsg, error) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, err
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		WriteError(conn, protocol.ErrProtoBadRequest, ErrBadHello.Error())
		Close(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return hello, ErrBadHello
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		WriteError(conn, protocol.ErrProtoBadRequest, ErrBadHello.Error())
		Close(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return hello, ErrBadHello
	}
	if hello.ProtocolVersion != protocol.Version {
		WriteError(conn, protocol.ErrProtoVersion, ErrBadVersion.Error())
		Close(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return hello, ErrBadVersion
	}
	return hello, nil
}

func WriteJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func WriteError(conn *websocket.Conn, code, msg string) {
	_ = WriteJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	})
}

func Close(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

// Pump forwards frames and data messages to conn until the client goes away or the producer
// closes either channel. Anything the client sends is read and dropped. It returns the close
// reason it sent.
func Pump(conn *websocket.Conn, frameOut, dataOut <-chan []byte) string {
	// Reader goroutine.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var b []byte
		var ok bool
		select {
		case <-readDone:
			Close(conn, websocket.CloseNormalClosure, "bye")
			return "bye"
		case b, ok = <-dataOut:
		case b, ok = <-frameOut:
		}
		if !ok {
			Close(conn, websocket.CloseNormalClosure, "session over")
			return "session over"
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return "write failed"
		}
	}
}
