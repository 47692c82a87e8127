package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/cleanhub/stockport/internal/api"
	"github.com/cleanhub/stockport/internal/domain"
	"github.com/cleanhub/stockport/internal/evidence"
)

// uploadClient is the subset of the backend client the pipeline needs.
type uploadClient interface {
	UploadImage(ctx context.Context, token, folder, filename string, image io.Reader) (string, error)
	CreateOrder(ctx context.Context, token string, req *api.CreateOrderRequest) (*domain.Order, error)
}

// Progress receives the integer percentage of completed uploads. It is
// called after every upload and is monotonic, reaching exactly 100 on the
// last one.
type Progress func(percent int)

// Submitter turns a validated draft into a created order: every evidence
// image is uploaded one at a time, strictly in order (room images first,
// then each line's images in draft order), then a single creation call
// carries the resolved URLs. Sequential uploads keep progress monotonic and
// the server-side evidence ordering deterministic; do not parallelize.
type Submitter struct {
	client    uploadClient
	spool     evidence.Store
	logger    *slog.Logger
	newFolder func() string
	now       func() time.Time
}

func NewSubmitter(client uploadClient, spool evidence.Store, logger *slog.Logger) *Submitter {
	return &Submitter{
		client:    client,
		spool:     spool,
		logger:    logger,
		newFolder: func() string { return "orders/" + uuid.NewString() },
		now:       time.Now,
	}
}

// Submit validates and submits the draft. On any upload or creation failure
// it aborts immediately: no order is created, the draft is left untouched
// (the caller can resubmit as-is), and already-uploaded images are not
// cleaned up.
func (s *Submitter) Submit(ctx context.Context, token string, site *domain.Site, draft *Draft, progress Progress) (*domain.Order, error) {
	if errs := Validate(draft); errs != nil {
		return nil, errs
	}

	included := make([]*Line, 0, len(draft.Lines))
	total := len(draft.RoomImages)
	for i := range draft.Lines {
		if draft.Lines[i].Requested > 0 {
			included = append(included, &draft.Lines[i])
			total += len(draft.Lines[i].Images)
		}
	}

	folder := s.newFolder()
	uploaded := 0
	s.logger.Info("order submission started",
		"site_id", draft.SiteID, "items", len(included), "images", total, "folder", folder)

	uploadOne := func(key string) (string, error) {
		r, err := s.spool.Open(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to read evidence image %s: %w", key, err)
		}
		url, uploadErr := s.client.UploadImage(ctx, token, folder, key, r)
		if cerr := r.Close(); cerr != nil {
			s.logger.Error("failed to close evidence image", "key", key, "error", cerr)
		}
		if uploadErr != nil {
			return "", uploadErr
		}

		uploaded++
		if progress != nil {
			progress(percent(uploaded, total))
		}
		return url, nil
	}

	roomURLs := make([]string, 0, len(draft.RoomImages))
	for _, key := range draft.RoomImages {
		url, err := uploadOne(key)
		if err != nil {
			return nil, fmt.Errorf("room image upload failed: %w", err)
		}
		roomURLs = append(roomURLs, url)
	}

	items := make([]domain.OrderItem, 0, len(included))
	for _, line := range included {
		photoURLs := make([]string, 0, len(line.Images))
		for _, key := range line.Images {
			url, err := uploadOne(key)
			if err != nil {
				return nil, fmt.Errorf("item image upload failed for %s: %w", line.Product.Name, err)
			}
			photoURLs = append(photoURLs, url)
		}

		items = append(items, domain.OrderItem{
			ProductID:           line.Product.ProductID,
			ProductName:         line.Product.Name,
			ProductType:         line.Product.Type,
			Quantity:            line.Requested,
			ItemAvailableOnSite: line.Available,
			ItemAlreadyOnSite:   line.AlreadyOnSite == Yes,
			ItemPhotos:          photoURLs,
		})
	}

	req := &api.CreateOrderRequest{
		SiteID: draft.SiteID,
		SiteInfo: domain.SiteInfo{
			SiteID:           site.ID,
			SiteName:         site.SiteName,
			OrganizationName: site.OrganizationName,
			Location:         site.Location,
		},
		CleanerEmail: draft.CleanerEmail,
		OrderDate:    s.now().UTC().Format(time.RFC3339),
		Items:        items,
		RoomPhotos:   roomURLs,
	}

	created, err := s.client.CreateOrder(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("order creation failed: %w", err)
	}

	s.logger.Info("order submitted", "order_number", created.OrderNumber, "images", uploaded)
	return created, nil
}

func percent(uploaded, total int) int {
	return int(math.Round(100 * float64(uploaded) / float64(total)))
}
