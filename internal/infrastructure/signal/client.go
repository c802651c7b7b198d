package signal

import (
	"sync"
	"time"

	"callroom/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client wraps one websocket connection. All writes go through send and
// are performed by writePump; reads happen on the handler goroutine.
type Client struct {
	id      domain.ConnectionID
	conn    *websocket.Conn
	codec   Codec
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	userID domain.UserID

	pingInterval time.Duration
	writeTimeout time.Duration

	closeOnce sync.Once
	logger    *zap.SugaredLogger
}

func (c *Client) enqueue(frame Frame) error {
	data, err := c.codec.Encode(frame)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionNotFound
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *Client) sendEvent(event string, payload interface{}) error {
	return c.enqueue(Frame{Type: frameEvent, Event: event, Data: payload})
}

func (c *Client) sendAck(id *int64, event string, data map[string]interface{}) error {
	return c.enqueue(Frame{Type: frameAck, ID: id, Event: event, Data: data})
}

// close stops the write pump and closes the socket, which unblocks the reader.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.writeTimeout)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()
	})
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.logger.Debugw("error writing frame", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debugw("error sending ping", "error", err)
				return
			}

		case <-c.done:
			return
		}
	}
}
