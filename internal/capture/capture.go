// Package capture acquires still frames from a camera-like source and spools
// them as evidence images. The stream is a pluggable Provider so the portal
// can run against any frame source.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/cleanhub/stockport/internal/evidence"
)

// Facing selects which way the requested camera points.
type Facing string

const (
	FacingFront Facing = "user"
	FacingBack  Facing = "environment"
	// FacingAny requests an unconstrained stream.
	FacingAny Facing = ""
)

// Opposite returns the other constrained facing. FacingAny flips to back,
// the default preference for evidence shots.
func (f Facing) Opposite() Facing {
	if f == FacingBack {
		return FacingFront
	}
	return FacingBack
}

// Capacity limits for one capture session.
const (
	RoomImageLimit       = 5
	ItemImagesPerSession = 2
)

var (
	// ErrNoStream means the camera could not be acquired; the capture control
	// is dead but the session can still be ended cleanly.
	ErrNoStream = errors.New("no camera stream")
	// ErrNotCapturing means no capture session is open.
	ErrNotCapturing = errors.New("no capture session active")
	// ErrSessionActive means Begin was called while a session is open.
	ErrSessionActive = errors.New("capture session already active")
	// ErrBufferFull means the active target reached its image limit.
	ErrBufferFull = errors.New("image limit reached for this capture target")
	// ErrSingleDevice means facing switch is unavailable.
	ErrSingleDevice = errors.New("only one camera device available")
)

// Device describes one enumerable video input.
type Device struct {
	ID     string
	Label  string
	Facing Facing
}

// Stream is an open frame source. Close must be idempotent-safe for the
// pipeline: the pipeline guarantees it calls Close exactly once per stream.
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// Provider enumerates devices and opens streams. Open with FacingAny must
// return whatever device is available.
type Provider interface {
	Devices() ([]Device, error)
	Open(facing Facing) (Stream, error)
}

// Target identifies what a capture session collects evidence for. The three
// variants are mutually exclusive.
type Target struct {
	kind targetKind
	item int
}

type targetKind int

const (
	targetClosed targetKind = iota
	targetRoom
	targetItem
)

func TargetClosed() Target      { return Target{kind: targetClosed} }
func TargetRoom() Target        { return Target{kind: targetRoom} }
func TargetItem(i int) Target   { return Target{kind: targetItem, item: i} }
func (t Target) IsClosed() bool { return t.kind == targetClosed }
func (t Target) IsRoom() bool   { return t.kind == targetRoom }

// Item returns the line index when the target is an item target.
func (t Target) Item() (int, bool) {
	return t.item, t.kind == targetItem
}

func (t Target) limit() int {
	if t.kind == targetRoom {
		return RoomImageLimit
	}
	return ItemImagesPerSession
}

func (t Target) String() string {
	switch t.kind {
	case targetRoom:
		return "room"
	case targetItem:
		return fmt.Sprintf("item[%d]", t.item)
	default:
		return "closed"
	}
}

// Pipeline is the capture state machine. A session opens with Begin, collects
// zero or more stills with Capture, and must end with End on every exit path
// so the stream is always released.
type Pipeline struct {
	provider Provider
	spool    evidence.Store
	logger   *slog.Logger

	target Target
	stream Stream
	facing Facing
	buffer []string
}

func NewPipeline(provider Provider, spool evidence.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		spool:    spool,
		logger:   logger,
		target:   TargetClosed(),
	}
}

// Begin opens a capture session for target, discarding any images a previous
// session collected for it (a new session overwrites, never appends). The
// preferred facing is tried first, then an unconstrained request; if both
// fail the session still opens, but Capture reports ErrNoStream until End.
func (p *Pipeline) Begin(target Target, preferred Facing) error {
	if target.IsClosed() {
		return fmt.Errorf("cannot begin capture for a closed target")
	}
	if !p.target.IsClosed() {
		return ErrSessionActive
	}

	p.target = target
	p.buffer = nil
	p.stream, p.facing = p.openStream(preferred)
	return nil
}

// openStream tries the preferred facing, then unconstrained. Returns a nil
// stream when the camera is unavailable entirely.
func (p *Pipeline) openStream(preferred Facing) (Stream, Facing) {
	s, err := p.provider.Open(preferred)
	if err == nil {
		return s, preferred
	}
	if preferred != FacingAny {
		p.logger.Warn("camera open failed, retrying unconstrained", "facing", string(preferred), "error", err)
		if s, err = p.provider.Open(FacingAny); err == nil {
			return s, FacingAny
		}
	}
	p.logger.Error("camera unavailable", "error", err)
	return nil, FacingAny
}

// Streaming reports whether a live stream is held.
func (p *Pipeline) Streaming() bool { return p.stream != nil }

// ActiveTarget returns the open session's target, or the closed target.
func (p *Pipeline) ActiveTarget() Target { return p.target }

// Captured returns the keys collected so far in this session.
func (p *Pipeline) Captured() []string { return append([]string(nil), p.buffer...) }

// Capture grabs the current frame, spools it, and appends the handle to the
// session buffer. At the target's limit the capture is rejected rather than
// silently dropped.
func (p *Pipeline) Capture(ctx context.Context) (string, error) {
	if p.target.IsClosed() {
		return "", ErrNotCapturing
	}
	if p.stream == nil {
		return "", ErrNoStream
	}
	if len(p.buffer) >= p.target.limit() {
		return "", ErrBufferFull
	}

	frame, err := p.stream.Frame()
	if err != nil {
		return "", fmt.Errorf("failed to read frame: %w", err)
	}

	key, err := p.spool.Save(ctx, frame)
	if err != nil {
		return "", fmt.Errorf("failed to spool frame: %w", err)
	}

	p.buffer = append(p.buffer, key)
	if p.target.IsRoom() && len(p.buffer) > RoomImageLimit {
		// Guard for external state already at the cap; normally unreachable
		// because the capture above is rejected first.
		p.buffer = p.buffer[:RoomImageLimit]
	}

	p.logger.Debug("frame captured", "target", p.target.String(), "key", key, "count", len(p.buffer))
	return key, nil
}

// SwitchFacing flips between front and back cameras. Only valid when more
// than one video device is enumerable.
func (p *Pipeline) SwitchFacing() error {
	if p.target.IsClosed() {
		return ErrNotCapturing
	}

	devices, err := p.provider.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if len(devices) < 2 {
		return ErrSingleDevice
	}

	p.closeStream()
	p.stream, p.facing = p.openStream(p.facing.Opposite())
	if p.stream == nil {
		return ErrNoStream
	}
	return nil
}

// End releases the stream and closes the session, returning the target and
// the handles it collected. It is safe on every exit path, including a
// session that never acquired a stream, and may be called repeatedly.
func (p *Pipeline) End() (Target, []string) {
	target, keys := p.target, p.buffer
	p.closeStream()
	p.target = TargetClosed()
	p.buffer = nil
	return target, keys
}

func (p *Pipeline) closeStream() {
	if p.stream == nil {
		return
	}
	if err := p.stream.Close(); err != nil {
		p.logger.Error("failed to release camera stream", "error", err)
	}
	p.stream = nil
}
