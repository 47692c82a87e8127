package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveRoomImages() []string {
	return []string{"r1.png", "r2.png", "r3.png", "r4.png", "r5.png"}
}

func submittableDraft(t *testing.T) *Draft {
	t.Helper()

	d := NewDraft("site-1", catalog())
	d.CleanerEmail = "cleaner@example.com"
	d.SetRoomImages(fiveRoomImages())
	require.NoError(t, d.AdjustQuantity(0, +2, FieldRequested))
	require.NoError(t, d.AdjustQuantity(0, +1, FieldAvailable))
	require.NoError(t, d.SetAlreadyOnSite(0, Yes))
	require.NoError(t, d.AttachItemImages(0, []string{"a1.png"}))
	return d
}

func TestValidateAcceptsCompleteDraft(t *testing.T) {
	assert.Nil(t, Validate(submittableDraft(t)))
}

func TestValidateZeroQuantityLinesAreIgnored(t *testing.T) {
	d := submittableDraft(t)
	// Line 1 was never selected; its empty details must not count against it.
	assert.Nil(t, Validate(d))
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	d := NewDraft("site-1", catalog())
	require.NoError(t, d.AdjustQuantity(0, +1, FieldRequested))
	require.NoError(t, d.AdjustQuantity(1, +1, FieldRequested))

	errs := Validate(d)
	require.NotNil(t, errs)

	assert.Contains(t, errs, ErrKeyCleanerEmail)
	assert.Contains(t, errs, ErrKeyRoomImages)
	assert.Contains(t, errs, LineKey("p1"))
	assert.Contains(t, errs, LineKey("p2"))
	assert.Len(t, errs, 4)
}

func TestValidateRoomImageCountMustBeExact(t *testing.T) {
	d := submittableDraft(t)

	d.SetRoomImages(fiveRoomImages()[:4])
	assert.Contains(t, Validate(d), ErrKeyRoomImages)

	d.SetRoomImages(append(fiveRoomImages(), "r6.png"))
	assert.Contains(t, Validate(d), ErrKeyRoomImages)
}

func TestValidateBlankEmail(t *testing.T) {
	d := submittableDraft(t)
	d.CleanerEmail = "   "

	errs := Validate(d)
	require.NotNil(t, errs)
	assert.Contains(t, errs, ErrKeyCleanerEmail)
	assert.Len(t, errs, 1)
}

func TestValidateIncompleteLine(t *testing.T) {
	for name, breakLine := range map[string]func(*testing.T, *Draft){
		"no available count": func(t *testing.T, d *Draft) {
			require.NoError(t, d.AdjustQuantity(0, -1, FieldAvailable))
		},
		"unanswered already-on-site": func(t *testing.T, d *Draft) {
			d.Lines[0].AlreadyOnSite = Unset
		},
		"no evidence images": func(t *testing.T, d *Draft) {
			require.NoError(t, d.AttachItemImages(0, nil))
		},
	} {
		t.Run(name, func(t *testing.T) {
			d := submittableDraft(t)
			breakLine(t, d)

			errs := Validate(d)
			require.NotNil(t, errs)
			assert.Contains(t, errs, LineKey("p1"))
			assert.Len(t, errs, 1)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		ErrKeyRoomImages:   "exactly 5 images of the cleaner's room are required",
		ErrKeyCleanerEmail: "cleaner's email is required",
	}

	assert.Equal(t,
		"invalid order: cleaner_email: cleaner's email is required; room_images: exactly 5 images of the cleaner's room are required",
		errs.Error())
}
