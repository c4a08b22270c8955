// Package ioport realizes the I/O host callback of spec §6 over real
// WebSocket connections, generalizing the teacher's per-connection
// ws_connect/ws_send/ws_receive/ws_close lifecycle
// (internal/network/websocket.go) into the port-vector shape
// vm.IOHost.IO(ports, block) expects.
package ioport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fblego/internal/valueheap"
)

// Codec converts between a program's runtime values and the bytes
// carried over a WebSocket message. ByteListCodec below is the one
// realization this package ships; programs with a different wire
// convention can supply their own.
type Codec interface {
	Encode(v *valueheap.Value) ([]byte, error)
	Decode(b []byte) (*valueheap.Value, error)
}

// ByteListCodec encodes/decodes the concrete List@<T> cons/nil ADT
// (internal/check/rules.go:buildListType) under the convention that T's
// values carry the byte's value as their UnionTag and are otherwise
// unstructured -- the natural shape for a program that models Byte as a
// 256-variant union. Program-specific value encodings need their own
// Codec.
type ByteListCodec struct {
	Store *valueheap.Store
}

// Encode walks head/tail cons cells (tag 0) until a nil cell (tag 1),
// collecting each head's UnionTag as one byte.
func (c ByteListCodec) Encode(v *valueheap.Value) ([]byte, error) {
	var out []byte
	for {
		if v.Tag != valueheap.VUnion {
			return nil, fmt.Errorf("ioport: expected a List@ cons/nil union, got tag %v", v.Tag)
		}
		if v.UnionTag == 1 {
			return out, nil
		}
		if v.UnionTag != 0 {
			return nil, fmt.Errorf("ioport: unexpected List@ tag %d", v.UnionTag)
		}
		cell := v.UnionArg
		head := cell.Fields[0]
		out = append(out, byte(head.UnionTag))
		v = cell.Fields[1]
	}
}

// Decode builds the cons-cell chain for b, terminated by a nil cell.
func (c ByteListCodec) Decode(b []byte) (*valueheap.Value, error) {
	tail := c.Store.NewUnion(1, c.Store.NewStruct(nil))
	for i := len(b) - 1; i >= 0; i-- {
		head := c.Store.NewUnion(int(b[i]), c.Store.NewStruct(nil))
		cell := c.Store.NewStruct([]*valueheap.Value{head, tail})
		tail = c.Store.NewUnion(0, cell)
	}
	return tail, nil
}

// conn wraps one WebSocket connection with the background reader the
// teacher's WebSocketConn uses, feeding a buffered channel rather than
// blocking the connection's own goroutine on interpreter pace.
type conn struct {
	ws       *websocket.Conn
	messages chan []byte
	mu       sync.Mutex
	closed   bool
}

func newConn(ws *websocket.Conn) *conn {
	c := &conn{ws: ws, messages: make(chan []byte, 100)}
	go c.readLoop()
	return c
}

func (c *conn) readLoop() {
	defer close(c.messages)
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			return
		}
		select {
		case c.messages <- msg:
		default:
			<-c.messages
			c.messages <- msg
		}
	}
}

func (c *conn) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("ioport: connection closed")
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}

// Binding associates one port slot with a connection and a direction:
// Recv ports are filled from incoming messages, Send ports are drained
// by writing their pending value out.
type Binding struct {
	Slot *valueheap.PortSlot
	Recv bool
}

// WSHost is a vm.IOHost backed by a fixed set of WebSocket connections,
// one per bound port.
type WSHost struct {
	Codec    Codec
	bindings map[*valueheap.PortSlot]*conn
	recv     map[*valueheap.PortSlot]bool
}

// NewWSHost creates a host with no bound ports yet.
func NewWSHost(codec Codec) *WSHost {
	return &WSHost{Codec: codec, bindings: map[*valueheap.PortSlot]*conn{}, recv: map[*valueheap.PortSlot]bool{}}
}

// Dial connects to url and binds it to slot as a Recv (recv true) or
// Send port.
func (h *WSHost) Dial(url string, slot *valueheap.PortSlot, recv bool) error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("ioport: dial %s: %w", url, err)
	}
	h.bindings[slot] = newConn(ws)
	h.recv[slot] = recv
	return nil
}

// IO implements vm.IOHost: for each bound port, a Recv port pending a
// read gets filled from its connection's message channel (waiting if
// block is true and no other port made progress yet); a Send port
// holding a value has it encoded and written out.
func (h *WSHost) IO(ports []*valueheap.PortSlot, block bool) bool {
	changed := false
	var waitOn *conn
	var waitSlot *valueheap.PortSlot

	for _, slot := range ports {
		c, ok := h.bindings[slot]
		if !ok {
			continue
		}
		if h.recv[slot] {
			if slot.HasValue {
				continue
			}
			select {
			case msg, ok := <-c.messages:
				if !ok {
					continue
				}
				v, err := h.Codec.Decode(msg)
				if err != nil {
					continue
				}
				slot.Pending = v
				slot.HasValue = true
				changed = true
			default:
				if waitOn == nil {
					waitOn = c
					waitSlot = slot
				}
			}
		} else if slot.HasValue {
			b, err := h.Codec.Encode(slot.Pending)
			if err == nil && c.send(b) == nil {
				slot.Pending = nil
				slot.HasValue = false
				changed = true
			}
		}
	}

	if !changed && block && waitOn != nil {
		if msg, ok := <-waitOn.messages; ok {
			if v, err := h.Codec.Decode(msg); err == nil {
				waitSlot.Pending = v
				waitSlot.HasValue = true
				changed = true
			}
		}
	}
	return changed
}
