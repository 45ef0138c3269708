// Package queue provides a bounded, closable FIFO of inbound events shared
// by a transport session's read loop and the consumer that drains it.
package queue
