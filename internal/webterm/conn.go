package webterm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storyai/internal/logging"
	"storyai/internal/terminal"
)

// conn pumps one websocket to one session. Only the write loop touches the
// socket for writing; everything else queues frames on out.
type conn struct {
	ws   *websocket.Conn
	sess *terminal.Session

	out       chan envelope
	writeDone chan struct{}
	timeout   time.Duration

	// write loop state
	seq     int64
	cursor  int
	epoch   uint64
	state   statePayload
	stateOK bool

	running sync.WaitGroup
}

func (s *Server) terminalWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, release, err := s.factory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start terminal", err.Error())
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		return
	}
	s.conns.Add(1)
	s.active.Add(1)
	defer func() {
		s.active.Add(-1)
		s.conns.Done()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{
		ws:        ws,
		sess:      sess,
		out:       make(chan envelope, 16),
		writeDone: make(chan struct{}),
		timeout:   s.writeTimeout,
	}
	logging.Transport("session %s: websocket opened from %s", sess.ID(), r.RemoteAddr)

	updates, unsubscribe := sess.Subscribe()
	go c.writeLoop(updates)
	go func() {
		<-ctx.Done()
		_ = ws.Close()
	}()

	sess.Start(ctx)
	c.readLoop(ctx)

	cancel()
	c.running.Wait()
	unsubscribe()
	<-c.writeDone
	release()
	logging.Transport("session %s: websocket closed", sess.ID())
}

// =============================================================================
// READ SIDE
// =============================================================================

func (c *conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue
		}
		if err := c.handle(ctx, data); err != nil {
			var ie *inputError
			if !errors.As(err, &ie) {
				return
			}
			c.send(frameError, errorPayload{Code: ie.code, Message: ie.message})
		}
	}
}

func (c *conn) handle(ctx context.Context, data []byte) error {
	msg, err := parseInbound(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case "input":
		text, err := msg.text()
		if err != nil {
			return err
		}
		inv, err := c.sess.Begin(text)
		if err != nil {
			return &inputError{code: submissionCode(err), message: err.Error()}
		}
		c.running.Add(1)
		go func() {
			defer c.running.Done()
			_ = inv.Run(ctx)
		}()
		c.send(frameBuffer, c.sess.Buffer())
	case "buffer":
		text, err := msg.text()
		if err != nil {
			return err
		}
		c.sess.SetBuffer(text)
	case "key":
		var buffer string
		switch msg.Key {
		case "up":
			buffer = c.sess.HistoryUp()
		case "down":
			buffer = c.sess.HistoryDown()
		case "tab":
			buffer = c.sess.Complete()
		default:
			return badRequest("unsupported key %q", msg.Key)
		}
		c.send(frameBuffer, buffer)
	default:
		return &inputError{code: "unsupported", message: "unsupported message type"}
	}
	return nil
}

// send queues a frame for the write loop. It drops the frame once the write
// loop has exited.
func (c *conn) send(typ string, data any) {
	select {
	case c.out <- envelope{Type: typ, Data: data}:
	case <-c.writeDone:
	}
}

// =============================================================================
// WRITE SIDE
// =============================================================================

func (c *conn) writeLoop(updates <-chan struct{}) {
	defer close(c.writeDone)
	if err := c.flush(); err != nil {
		return
	}
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
			if err := c.flush(); err != nil {
				return
			}
		case env := <-c.out:
			if err := c.write(env); err != nil {
				return
			}
		}
	}
}

// flush writes every scrollback line the client has not seen, restarting
// from the top after a clear, then the state if it changed.
func (c *conn) flush() error {
	for {
		lines, epoch := c.sess.Since(c.cursor)
		if epoch != c.epoch {
			c.epoch = epoch
			c.cursor = 0
			if err := c.write(envelope{Type: frameClear}); err != nil {
				return err
			}
			continue
		}
		for _, line := range lines {
			if err := c.write(envelope{Type: frameLine, Data: line}); err != nil {
				return err
			}
		}
		c.cursor += len(lines)
		break
	}

	state := statePayload{Interactive: c.sess.Interactive(), Processing: c.sess.Processing()}
	if c.stateOK && state == c.state {
		return nil
	}
	c.state, c.stateOK = state, true
	return c.write(envelope{Type: frameState, Data: state})
}

func (c *conn) write(env envelope) error {
	c.seq++
	env.Version = protocolVersion
	env.SessionID = c.sess.ID()
	env.Seq = c.seq
	env.TS = time.Now().UTC()
	if c.timeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.ws.WriteJSON(env)
}
