package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/cleanhub/stockport/internal/capture"
	"github.com/cleanhub/stockport/internal/domain"
	"github.com/cleanhub/stockport/internal/order"
	"github.com/cleanhub/stockport/internal/store"
)

var errNotLoggedIn = errors.New("no site session (run stockport login)")

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: stockport login <site-name> <password>")
	}

	creds, err := a.client.AuthenticateSite(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.site.Login(ctx, creds.AuthToken, creds.SiteID); err != nil {
		return err
	}
	fmt.Printf("logged in to site %s\n", creds.SiteID)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.site.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) cmdStatus(ctx context.Context) error {
	site, err := a.site.Current(ctx)
	if err != nil {
		return err
	}
	admin, err := a.admin.Current(ctx)
	if err != nil {
		return err
	}

	if site == nil {
		fmt.Println("site session:  none")
	} else {
		fmt.Printf("site session:  %s (since %s)\n", site.ScopeID, site.IssuedAt.Format("15:04:05"))
	}
	if admin == nil {
		fmt.Println("admin session: none")
	} else {
		fmt.Printf("admin session: active (since %s)\n", admin.IssuedAt.Format("15:04:05"))
	}
	return nil
}

// requireSite returns the live site session or errNotLoggedIn.
func (a *app) requireSite(ctx context.Context) (*store.SessionRecord, error) {
	rec, err := a.site.Current(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errNotLoggedIn
	}
	return rec, nil
}

func (a *app) fetchCatalog(ctx context.Context, rec *store.SessionRecord) (*domain.Site, []domain.Product, error) {
	site, err := a.client.FetchSite(ctx, rec.Token, rec.ScopeID)
	if err != nil {
		return nil, nil, err
	}
	products, err := a.client.FetchProducts(ctx, rec.Token, site.ProductList)
	if err != nil {
		return nil, nil, err
	}
	return site, products, nil
}

func (a *app) cmdCatalog(ctx context.Context) error {
	rec, err := a.requireSite(ctx)
	if err != nil {
		return err
	}
	site, products, err := a.fetchCatalog(ctx, rec)
	if err != nil {
		return err
	}

	fmt.Printf("%s — %s (%s)\n", site.SiteName, site.OrganizationName, site.Location)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tTYPE")
	for i, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, p.Name, p.Type)
	}
	return w.Flush()
}

// loadDraft returns the stored draft for the session's site, creating a
// fresh one over the live catalog when none exists yet.
func (a *app) loadDraft(ctx context.Context, rec *store.SessionRecord) (*order.Draft, error) {
	payload, err := a.drafts.Get(ctx, rec.ScopeID)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		return order.Unmarshal(payload)
	}

	_, products, err := a.fetchCatalog(ctx, rec)
	if err != nil {
		return nil, err
	}
	return order.NewDraft(rec.ScopeID, products), nil
}

func (a *app) saveDraft(ctx context.Context, draft *order.Draft) error {
	payload, err := draft.Marshal()
	if err != nil {
		return err
	}
	return a.drafts.Put(ctx, draft.SiteID, payload)
}

func (a *app) cmdDraft(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stockport draft <show|email|qty|avail|onsite|capture|remove-image|discard>")
	}

	rec, err := a.requireSite(ctx)
	if err != nil {
		return err
	}
	draft, err := a.loadDraft(ctx, rec)
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
		return a.printDraft(draft)
	case "email":
		if len(args) != 2 {
			return errors.New("usage: stockport draft email <address>")
		}
		draft.CleanerEmail = args[1]
	case "qty", "avail":
		if len(args) != 3 {
			return fmt.Errorf("usage: stockport draft %s <line> <delta>", args[0])
		}
		line, delta, err := lineAndDelta(args[1], args[2])
		if err != nil {
			return err
		}
		field := order.FieldRequested
		if args[0] == "avail" {
			field = order.FieldAvailable
		}
		if err := draft.AdjustQuantity(line, delta, field); err != nil {
			return err
		}
	case "onsite":
		if len(args) != 3 {
			return errors.New("usage: stockport draft onsite <line> <yes|no>")
		}
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad line number %q", args[1])
		}
		answer := order.No
		if args[2] == "yes" {
			answer = order.Yes
		} else if args[2] != "no" {
			return fmt.Errorf("answer must be yes or no, got %q", args[2])
		}
		if err := draft.SetAlreadyOnSite(line, answer); err != nil {
			return err
		}
	case "capture":
		if err := a.captureInto(ctx, draft, args[1:]); err != nil {
			return err
		}
	case "remove-image":
		if err := a.removeImage(ctx, draft, args[1:]); err != nil {
			return err
		}
	case "discard":
		for _, key := range draft.ImageKeys() {
			if err := a.spool.Remove(ctx, key); err != nil {
				a.logger.Error("failed to remove spooled image", "key", key, "error", err)
			}
		}
		if err := a.drafts.Delete(ctx, draft.SiteID); err != nil {
			return err
		}
		fmt.Println("draft discarded")
		return nil
	default:
		return fmt.Errorf("unknown draft command %q", args[0])
	}

	if err := a.saveDraft(ctx, draft); err != nil {
		return err
	}
	return a.printDraft(draft)
}

func lineAndDelta(lineArg, deltaArg string) (int, int, error) {
	line, err := strconv.Atoi(lineArg)
	if err != nil {
		return 0, 0, fmt.Errorf("bad line number %q", lineArg)
	}
	delta, err := strconv.Atoi(deltaArg)
	if err != nil {
		return 0, 0, fmt.Errorf("bad delta %q", deltaArg)
	}
	return line, delta, nil
}

func (a *app) printDraft(draft *order.Draft) error {
	fmt.Printf("draft for site %s\n", draft.SiteID)
	fmt.Printf("cleaner email: %s\n", orDash(draft.CleanerEmail))
	fmt.Printf("room images:   %d of %d\n", len(draft.RoomImages), capture.RoomImageLimit)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tREQ\tAVAIL\tON SITE\tIMAGES")
	for i, line := range draft.Lines {
		onSite := "-"
		switch line.AlreadyOnSite {
		case order.Yes:
			onSite = "yes"
		case order.No:
			onSite = "no"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%d\n",
			i, line.Product.Name, line.Requested, line.Available, onSite, len(line.Images))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if errs := order.Validate(draft); errs != nil {
		fmt.Printf("not submittable yet: %s\n", errs.Error())
	} else {
		fmt.Println("ready to submit")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// captureInto runs one capture session against the configured camera and
// attaches the resulting images to the draft, replacing any prior set for
// the same target.
func (a *app) captureInto(ctx context.Context, draft *order.Draft, args []string) error {
	var target capture.Target
	var replaced []string

	switch {
	case len(args) == 1 && args[0] == "room":
		target = capture.TargetRoom()
		replaced = draft.RoomImages
	case len(args) == 2 && args[0] == "item":
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad line number %q", args[1])
		}
		if line < 0 || line >= len(draft.Lines) {
			return fmt.Errorf("no line %d", line)
		}
		target = capture.TargetItem(line)
		replaced = draft.Lines[line].Images
	default:
		return errors.New("usage: stockport draft capture room | item <line>")
	}

	if a.cfg.CameraDir == "" {
		return errors.New("no camera source configured (set STOCKPORT_CAMERA_DIR)")
	}

	pipeline := capture.NewPipeline(a.cameraProvider(), a.spool, a.logger)
	if err := pipeline.Begin(target, a.cameraFacing()); err != nil {
		return err
	}

	for {
		key, err := pipeline.Capture(ctx)
		if errors.Is(err, capture.ErrBufferFull) {
			break
		}
		if err != nil {
			pipeline.End()
			return err
		}
		fmt.Printf("captured %s\n", key)
	}
	_, keys := pipeline.End()

	if i, ok := target.Item(); ok {
		if err := draft.AttachItemImages(i, keys); err != nil {
			return err
		}
	} else {
		draft.SetRoomImages(keys)
	}

	for _, key := range replaced {
		if err := a.spool.Remove(ctx, key); err != nil {
			a.logger.Error("failed to remove replaced image", "key", key, "error", err)
		}
	}
	return nil
}

func (a *app) removeImage(ctx context.Context, draft *order.Draft, args []string) error {
	var key string

	switch {
	case len(args) == 2 && args[0] == "room":
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad image number %q", args[1])
		}
		if n >= 0 && n < len(draft.RoomImages) {
			key = draft.RoomImages[n]
		}
		if err := draft.RemoveRoomImage(n); err != nil {
			return err
		}
	case len(args) == 3 && args[0] == "item":
		line, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad line number %q", args[1])
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("bad image number %q", args[2])
		}
		if line >= 0 && line < len(draft.Lines) && n >= 0 && n < len(draft.Lines[line].Images) {
			key = draft.Lines[line].Images[n]
		}
		if err := draft.RemoveItemImage(line, n); err != nil {
			return err
		}
	default:
		return errors.New("usage: stockport draft remove-image room <n> | item <line> <n>")
	}

	if err := a.spool.Remove(ctx, key); err != nil {
		a.logger.Error("failed to remove spooled image", "key", key, "error", err)
	}
	return nil
}

func (a *app) cmdSubmit(ctx context.Context) error {
	rec, err := a.requireSite(ctx)
	if err != nil {
		return err
	}
	payload, err := a.drafts.Get(ctx, rec.ScopeID)
	if err != nil {
		return err
	}
	if payload == nil {
		return errors.New("nothing to submit (the draft is empty)")
	}
	draft, err := order.Unmarshal(payload)
	if err != nil {
		return err
	}

	site, err := a.client.FetchSite(ctx, rec.Token, rec.ScopeID)
	if err != nil {
		return err
	}

	submitter := order.NewSubmitter(a.client, a.spool, a.logger)
	created, err := submitter.Submit(ctx, rec.Token, site, draft, func(percent int) {
		fmt.Printf("uploading evidence: %d%%\n", percent)
	})
	if err != nil {
		return err
	}

	for _, key := range draft.ImageKeys() {
		if err := a.spool.Remove(ctx, key); err != nil {
			a.logger.Error("failed to remove spooled image", "key", key, "error", err)
		}
	}
	if err := a.drafts.Delete(ctx, draft.SiteID); err != nil {
		a.logger.Error("failed to clear submitted draft", "site_id", draft.SiteID, "error", err)
	}

	fmt.Printf("order %s created (%s)\n", created.OrderNumber, created.Status)
	return nil
}
