// Package wasmtest builds guest modules linked against the bridge host
// module for tests and examples.
package wasmtest

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasm-bridge/internal/wat"
)

// Benign is the message runtimes throw to leave their start routine.
const Benign = "Using exceptions for control flow, don't mind me. This isn't actually an error!"

// Start selects what a Guest does in _start.
type Start int

const (
	// StartReturn returns normally.
	StartReturn Start = iota
	// StartBenign throws the Benign message.
	StartBenign
	// StartThrow throws Guest.Message.
	StartThrow
	// StartTrap executes unreachable.
	StartTrap
	// StartCheckSize traps unless the surface is Guest.Width x Guest.Height.
	StartCheckSize
	// StartNone omits the _start export.
	StartNone
)

// Events the guest reports on its own through receive_event.
const (
	PausedEvent    = `{"ViewModel":"paused"}`
	ResumedEvent   = `{"ViewModel":"resumed"}`
	ReleasedEvent  = `{"ViewModel":"released"}`
	HeartbeatEvent = `{"ViewModel":"tick"}`
)

// Guest describes a test module linked against the bridge host module.
type Guest struct {
	Message string
	Start   Start
	// PollCap is the buffer size offered to poll_event first. A negative
	// result is retried with the reported size. 0 means 4096.
	PollCap int32
	Width   int32
	Height  int32
	// NoFrame omits the frame export.
	NoFrame bool
	// Lifecycle adds pause, resume and release exports that emit
	// PausedEvent, ResumedEvent and ReleasedEvent.
	Lifecycle bool
	// Heartbeat makes every frame emit HeartbeatEvent before polling.
	Heartbeat bool
}

// Memory layout
const (
	offMessage   = 64
	offPaused    = 512
	offResumed   = 576
	offReleased  = 640
	offHeartbeat = 704
	offBuffer    = 1024
	bufferCap    = 4096
)

const imports = `
  (import "bridge" "poll_event" (func $poll (param i32 i32) (result i32)))
  (import "bridge" "receive_event" (func $receive (param i32 i32)))
  (import "bridge" "throw" (func $throw (param i32 i32)))
  (import "bridge" "surface_width" (func $width (result i32)))
  (import "bridge" "surface_height" (func $height (result i32)))
  (memory (export "memory") 1)
`

// frameLoop drains the host queue, echoing every polled event back. When
// the offered buffer is too small the host reports the size it needs.
const frameLoop = `
    (loop $next
      (local.set $n (call $poll (i32.const %[1]d) (i32.const %[2]d)))
      (if (i32.lt_s (local.get $n) (i32.const 0))
        (then
          (local.set $n (call $poll (i32.const %[1]d) (i32.sub (i32.const 0) (local.get $n))))))
      (if (i32.gt_s (local.get $n) (i32.const 0))
        (then
          (call $receive (i32.const %[1]d) (local.get $n))
          (br $next))))`

// Source renders the guest as WebAssembly text.
func (g Guest) Source() string {
	var b strings.Builder
	b.WriteString("(module")
	b.WriteString(imports)

	message := g.Message
	if g.Start == StartBenign {
		message = Benign
	}
	if message != "" {
		data(&b, offMessage, message)
	}

	switch g.Start {
	case StartReturn:
		b.WriteString(`  (func (export "_start"))` + "\n")
	case StartBenign, StartThrow:
		fmt.Fprintf(&b, "  (func (export \"_start\")\n    (call $throw (i32.const %d) (i32.const %d)))\n",
			offMessage, len(message))
	case StartTrap:
		b.WriteString(`  (func (export "_start") (unreachable))` + "\n")
	case StartCheckSize:
		fmt.Fprintf(&b, `  (func (export "_start")
    (if (i32.ne (call $width) (i32.const %d)) (then (unreachable)))
    (if (i32.ne (call $height) (i32.const %d)) (then (unreachable))))
`, g.Width, g.Height)
	}

	if !g.NoFrame {
		pollCap := g.PollCap
		if pollCap == 0 {
			pollCap = bufferCap
		}
		if g.Heartbeat {
			data(&b, offHeartbeat, HeartbeatEvent)
		}
		b.WriteString(`  (func (export "frame") (local $n i32)`)
		if g.Heartbeat {
			fmt.Fprintf(&b, "\n    (call $receive (i32.const %d) (i32.const %d))", offHeartbeat, len(HeartbeatEvent))
		}
		fmt.Fprintf(&b, frameLoop, offBuffer, pollCap)
		b.WriteString(")\n")
	}

	if g.Lifecycle {
		emit := func(export string, off int, payload string) {
			data(&b, off, payload)
			fmt.Fprintf(&b, "  (func (export %q) (call $receive (i32.const %d) (i32.const %d)))\n",
				export, off, len(payload))
		}
		emit("pause", offPaused, PausedEvent)
		emit("resume", offResumed, ResumedEvent)
		emit("release", offReleased, ReleasedEvent)
	}

	b.WriteString(")\n")
	return b.String()
}

// Bytes compiles the guest. Its frame export echoes every event polled from
// the host straight back through receive_event.
func (g Guest) Bytes() []byte {
	return wat.MustCompile(g.Source())
}

// data writes an active data segment. Every byte is hex-escaped so JSON and
// free text need no quoting rules.
func data(b *strings.Builder, offset int, s string) {
	fmt.Fprintf(b, "  (data (i32.const %d) \"", offset)
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(b, `\%02x`, s[i])
	}
	b.WriteString("\")\n")
}
