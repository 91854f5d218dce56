// Package xdp carries the types the packet core exchanges with the
// host dispatch contract: the verdict enum, the per-invocation buffer
// context and the map/event envelopes used to talk to user space. The
// semantics of verdicts and maps belong to the kernel; this package
// only shapes the values.
package xdp

import "fmt"

// Action is the verdict an XDP program returns for a frame. The values
// match the kernel's xdp_action enum.
type Action uint32

const (
	// ActionAborted signals a program anomaly and drops the frame.
	// Meant for debugging only.
	ActionAborted Action = iota
	// ActionDrop drops the frame without further processing.
	ActionDrop
	// ActionPass hands the frame to the normal network stack. The
	// program may have modified the frame bytes first.
	ActionPass
	// ActionTx bounces the frame back out the NIC it arrived on,
	// usually after mutating it.
	ActionTx
	// ActionRedirect sends the frame out through another NIC or
	// socket.
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionAborted:
		return "aborted"
	case ActionDrop:
		return "drop"
	case ActionPass:
		return "pass"
	case ActionTx:
		return "tx"
	case ActionRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("action(%d)", uint32(a))
	}
}

// Handler is the per-frame callback shape. A returned error is always
// recoverable; callers map it to a drop or pass verdict. A single
// malformed frame must never take the program down.
type Handler func(ctx *Context) (Action, error)
