// Package transport implements the WebSocket session to the platform's chat
// gateway: connect, ping/pong keepalive, inbound frame delivery, and an
// explicit lifecycle state machine (Idle, Connecting, Open, Closing, Closed).
//
//	sess := transport.New(url, 30*time.Second, 90*time.Second, logger)
//	if err := sess.Connect(ctx); err != nil { ... }
//	for frame := range sess.Frames() {
//	    event, err := decoder.Decode(frame)
//	    ...
//	}
package transport
