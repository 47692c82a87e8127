package order

import (
	"sort"
	"strings"

	"github.com/cleanhub/stockport/internal/capture"
)

// Validation error keys for the two draft-level fields. Line-level errors use
// the "line:<product_id>" form.
const (
	ErrKeyCleanerEmail = "cleaner_email"
	ErrKeyRoomImages   = "room_images"
)

// ValidationErrors maps an offending field to its message, so every problem
// can be surfaced at once.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// LineKey is the validation key for one draft line.
func LineKey(productID string) string {
	return "line:" + productID
}

// Validate checks a draft for submission. It never short-circuits: all
// problems are collected and returned together. A nil result means the draft
// is submittable.
func Validate(d *Draft) ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(d.CleanerEmail) == "" {
		errs[ErrKeyCleanerEmail] = "cleaner's email is required"
	}
	if len(d.RoomImages) != capture.RoomImageLimit {
		errs[ErrKeyRoomImages] = "exactly 5 images of the cleaner's room are required"
	}

	for _, line := range d.Lines {
		if line.Requested == 0 {
			continue
		}
		if line.Available == 0 || line.AlreadyOnSite == Unset || len(line.Images) == 0 {
			errs[LineKey(line.Product.ProductID)] = "all fields are required for selected products"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
