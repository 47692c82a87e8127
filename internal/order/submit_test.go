package order

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanhub/stockport/internal/api"
	"github.com/cleanhub/stockport/internal/domain"
)

// keySpool serves each key back as its own name, so tests can assert on
// upload content without real files.
type keySpool struct {
	missing map[string]bool
}

func (s *keySpool) Save(context.Context, image.Image) (string, error) {
	return "", errors.New("not used")
}

func (s *keySpool) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if s.missing[key] {
		return nil, fmt.Errorf("no spooled image %s", key)
	}
	return io.NopCloser(strings.NewReader(key)), nil
}

func (s *keySpool) Remove(context.Context, string) error { return nil }

type fakeBackend struct {
	uploads    []string // filenames in call order
	folders    []string
	failAfter  int // fail the upload once len(uploads) exceeds this; 0 disables
	created    *api.CreateOrderRequest
	createErr  error
	orderToken string
}

func (f *fakeBackend) UploadImage(_ context.Context, token, folder, filename string, img io.Reader) (string, error) {
	f.orderToken = token
	if f.failAfter > 0 && len(f.uploads) >= f.failAfter {
		return "", errors.New("storage unavailable")
	}
	body, err := io.ReadAll(img)
	if err != nil {
		return "", err
	}
	if string(body) != filename {
		return "", fmt.Errorf("unexpected upload body %q", body)
	}
	f.uploads = append(f.uploads, filename)
	f.folders = append(f.folders, folder)
	return "https://cdn.example.com/" + folder + "/" + filename, nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, token string, req *api.CreateOrderRequest) (*domain.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = req
	return &domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-1001",
		Status:      domain.StatusNew,
		SiteInfo:    req.SiteInfo,
		Items:       req.Items,
		RoomPhotos:  req.RoomPhotos,
	}, nil
}

func testSite() *domain.Site {
	return &domain.Site{
		ID:               "site-1",
		SiteName:         "North Tower",
		OrganizationName: "CleanHub",
		Location:         "Leeds",
	}
}

func newTestSubmitter(backend *fakeBackend, spool *keySpool) *Submitter {
	s := NewSubmitter(backend, spool, slog.Default())
	s.newFolder = func() string { return "orders/test-folder" }
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return s
}

// fullDraft has five room images, one image on the first line and two on the
// second, six uploads in total.
func fullDraft(t *testing.T) *Draft {
	t.Helper()

	d := submittableDraft(t)
	require.NoError(t, d.AdjustQuantity(1, +3, FieldRequested))
	require.NoError(t, d.AdjustQuantity(1, +1, FieldAvailable))
	require.NoError(t, d.SetAlreadyOnSite(1, No))
	require.NoError(t, d.AttachItemImages(1, []string{"b1.png", "b2.png"}))
	return d
}

func TestSubmitUploadsInDraftOrder(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{})

	_, err := s.Submit(context.Background(), "tok", testSite(), fullDraft(t), nil)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"r1.png", "r2.png", "r3.png", "r4.png", "r5.png", "a1.png", "b1.png", "b2.png"},
		backend.uploads,
		"room images upload before item images, each group in draft order")
	for _, folder := range backend.folders {
		assert.Equal(t, "orders/test-folder", folder)
	}
}

func TestSubmitProgressIsMonotonicAndEndsAtHundred(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{})

	var reported []int
	_, err := s.Submit(context.Background(), "tok", testSite(), fullDraft(t), func(p int) {
		reported = append(reported, p)
	})
	require.NoError(t, err)

	require.Len(t, reported, 8)
	for i := 1; i < len(reported); i++ {
		assert.GreaterOrEqual(t, reported[i], reported[i-1])
	}
	assert.Equal(t, 100, reported[len(reported)-1])
}

func TestSubmitBuildsCreateRequest(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{})
	draft := fullDraft(t)

	created, err := s.Submit(context.Background(), "tok", testSite(), draft, nil)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", created.OrderNumber)
	assert.Equal(t, "tok", backend.orderToken)

	req := backend.created
	require.NotNil(t, req)
	assert.Equal(t, "site-1", req.SiteID)
	assert.Equal(t, "North Tower", req.SiteInfo.SiteName)
	assert.Equal(t, "cleaner@example.com", req.CleanerEmail)
	assert.Equal(t, "2026-03-14T09:30:00Z", req.OrderDate)
	assert.Len(t, req.RoomPhotos, 5)
	assert.Equal(t, "https://cdn.example.com/orders/test-folder/r1.png", req.RoomPhotos[0])

	require.Len(t, req.Items, 2)
	first := req.Items[0]
	assert.Equal(t, "p1", first.ProductID)
	assert.Equal(t, 2, first.Quantity)
	assert.Equal(t, 1, first.ItemAvailableOnSite)
	assert.True(t, first.ItemAlreadyOnSite)
	assert.Equal(t, []string{"https://cdn.example.com/orders/test-folder/a1.png"}, first.ItemPhotos)

	second := req.Items[1]
	assert.Equal(t, "p2", second.ProductID)
	assert.False(t, second.ItemAlreadyOnSite)
	assert.Len(t, second.ItemPhotos, 2)
}

func TestSubmitSkipsUnselectedLines(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{})
	draft := submittableDraft(t) // only line 0 has a requested quantity

	_, err := s.Submit(context.Background(), "tok", testSite(), draft, nil)
	require.NoError(t, err)

	require.Len(t, backend.created.Items, 1)
	assert.Equal(t, "p1", backend.created.Items[0].ProductID)
	assert.Len(t, backend.uploads, 6)
}

func TestSubmitAbortsOnUploadFailure(t *testing.T) {
	backend := &fakeBackend{failAfter: 2}
	s := newTestSubmitter(backend, &keySpool{})
	draft := fullDraft(t)

	before, err := draft.Marshal()
	require.NoError(t, err)

	var reported []int
	_, err = s.Submit(context.Background(), "tok", testSite(), draft, func(p int) {
		reported = append(reported, p)
	})
	require.Error(t, err)

	assert.Nil(t, backend.created, "no order may be created after a failed upload")
	assert.Len(t, backend.uploads, 2, "uploads stop at the first failure")
	assert.Len(t, reported, 2)

	after, err := draft.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "a failed submission leaves the draft untouched")
}

func TestSubmitAbortsOnSpoolFailure(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{missing: map[string]bool{"a1.png": true}})

	_, err := s.Submit(context.Background(), "tok", testSite(), fullDraft(t), nil)
	require.Error(t, err)
	assert.Nil(t, backend.created)
	assert.Len(t, backend.uploads, 5, "room images uploaded before the missing item image")
}

func TestSubmitCreateFailureReturnsError(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("backend down")}
	s := newTestSubmitter(backend, &keySpool{})

	_, err := s.Submit(context.Background(), "tok", testSite(), fullDraft(t), nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "order creation failed")
}

func TestSubmitRejectsInvalidDraft(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestSubmitter(backend, &keySpool{})
	draft := fullDraft(t)
	draft.CleanerEmail = ""

	_, err := s.Submit(context.Background(), "tok", testSite(), draft, nil)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, ErrKeyCleanerEmail)
	assert.Empty(t, backend.uploads, "nothing uploads for an invalid draft")
}
