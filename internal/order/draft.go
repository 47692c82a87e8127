// Package order holds the client-side order draft and its submission
// pipeline. A draft exists only locally until the backend accepts the
// created order.
package order

import (
	"encoding/json"
	"fmt"

	"github.com/cleanhub/stockport/internal/domain"
)

// TriState is the "items already on site" answer: unanswered until the
// cleaner picks yes or no.
type TriState int

const (
	Unset TriState = iota
	Yes
	No
)

// Field selects which quantity AdjustQuantity changes.
type Field string

const (
	FieldRequested Field = "requested"
	FieldAvailable Field = "available"
)

// Line is one catalog product annotated with the cleaner's entries.
type Line struct {
	Product       domain.Product `json:"product"`
	Requested     int            `json:"requested"`
	Available     int            `json:"available_on_site"`
	AlreadyOnSite TriState       `json:"already_on_site"`
	Images        []string       `json:"images"`
	Expanded      bool           `json:"expanded"`
}

// Draft is the in-progress order for one site.
type Draft struct {
	SiteID       string   `json:"site_id"`
	CleanerEmail string   `json:"cleaner_email"`
	RoomImages   []string `json:"room_images"`
	Lines        []Line   `json:"lines"`
}

// NewDraft builds a zero-quantity draft over the site's catalog.
func NewDraft(siteID string, products []domain.Product) *Draft {
	lines := make([]Line, len(products))
	for i, p := range products {
		lines[i] = Line{Product: p}
	}
	return &Draft{SiteID: siteID, Lines: lines}
}

// Unmarshal restores a draft from a stored snapshot.
func Unmarshal(payload []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &d, nil
}

// Marshal renders the draft as a storable snapshot.
func (d *Draft) Marshal() ([]byte, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	return payload, nil
}

func (d *Draft) line(i int) (*Line, error) {
	if i < 0 || i >= len(d.Lines) {
		return nil, fmt.Errorf("no line %d", i)
	}
	return &d.Lines[i], nil
}

// AdjustQuantity applies delta to the selected quantity, clamping at zero.
// When the requested quantity drops to zero every dependent entry resets to
// its default; when it rises above zero the line expands for detail entry.
func (d *Draft) AdjustQuantity(i, delta int, field Field) error {
	line, err := d.line(i)
	if err != nil {
		return err
	}

	switch field {
	case FieldAvailable:
		line.Available = clamp(line.Available + delta)
		return nil
	case FieldRequested:
		line.Requested = clamp(line.Requested + delta)
		if line.Requested == 0 {
			line.AlreadyOnSite = Unset
			line.Images = nil
			line.Expanded = false
		} else {
			line.Expanded = true
		}
		return nil
	default:
		return fmt.Errorf("unknown quantity field %q", field)
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// SetAlreadyOnSite records the yes/no answer for a line.
func (d *Draft) SetAlreadyOnSite(i int, value TriState) error {
	line, err := d.line(i)
	if err != nil {
		return err
	}
	if value != Yes && value != No {
		return fmt.Errorf("already-on-site must be yes or no")
	}
	line.AlreadyOnSite = value
	return nil
}

// AttachItemImages replaces the line's evidence images with the given
// handles. A new capture session always overwrites the prior set.
func (d *Draft) AttachItemImages(i int, keys []string) error {
	line, err := d.line(i)
	if err != nil {
		return err
	}
	line.Images = keys
	return nil
}

// SetRoomImages replaces the room evidence with the given handles.
func (d *Draft) SetRoomImages(keys []string) {
	d.RoomImages = keys
}

// RemoveItemImage drops one captured image from a line. No undo.
func (d *Draft) RemoveItemImage(i, imageIndex int) error {
	line, err := d.line(i)
	if err != nil {
		return err
	}
	if imageIndex < 0 || imageIndex >= len(line.Images) {
		return fmt.Errorf("no image %d on line %d", imageIndex, i)
	}
	line.Images = append(line.Images[:imageIndex], line.Images[imageIndex+1:]...)
	return nil
}

// RemoveRoomImage drops one captured room image. No undo.
func (d *Draft) RemoveRoomImage(imageIndex int) error {
	if imageIndex < 0 || imageIndex >= len(d.RoomImages) {
		return fmt.Errorf("no room image %d", imageIndex)
	}
	d.RoomImages = append(d.RoomImages[:imageIndex], d.RoomImages[imageIndex+1:]...)
	return nil
}

// ImageKeys returns every evidence handle the draft references, room first.
func (d *Draft) ImageKeys() []string {
	keys := append([]string(nil), d.RoomImages...)
	for _, line := range d.Lines {
		keys = append(keys, line.Images...)
	}
	return keys
}
