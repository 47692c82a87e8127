package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cleanhub/stockport/internal/domain"
	"github.com/cleanhub/stockport/internal/review"
)

var errNoAdminSession = errors.New("no admin session (run stockport admin login)")

func (a *app) cmdAdmin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: stockport admin <login|logout|dashboard|view|recent|accept|reject|delivery|history>")
	}

	switch args[0] {
	case "login":
		if len(args) != 3 {
			return errors.New("usage: stockport admin login <username> <password>")
		}
		token, err := a.client.AuthenticateAdmin(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		if err := a.admin.Login(ctx, token, args[1]); err != nil {
			return err
		}
		fmt.Println("admin logged in")
		return nil
	case "logout":
		if err := a.admin.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("admin logged out")
		return nil
	}

	rec, err := a.admin.Current(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return errNoAdminSession
	}
	svc := review.NewService(a.client, a.logger)

	switch args[0] {
	case "dashboard":
		filter := review.FilterAll
		if len(args) > 1 {
			filter = args[1]
		}
		orders, err := svc.Dashboard(ctx, rec.Token, filter)
		if err != nil {
			return err
		}
		return printOrders(orders)
	case "history":
		filter := review.FilterAll
		if len(args) > 1 {
			filter = args[1]
		}
		orders, err := svc.History(ctx, rec.Token, filter)
		if err != nil {
			return err
		}
		return printOrders(orders)
	case "view":
		if len(args) != 2 {
			return errors.New("usage: stockport admin view <order-number>")
		}
		o, err := svc.Inspect(ctx, rec.Token, args[1])
		if err != nil {
			return err
		}
		printOrderDetail(o)
		return nil
	case "recent":
		if len(args) != 3 {
			return errors.New("usage: stockport admin recent <site-id> <order-date>")
		}
		orders, err := svc.RecentForSite(ctx, rec.Token, args[1], args[2])
		if err != nil {
			return err
		}
		return printOrders(orders)
	case "accept":
		if len(args) != 2 {
			return errors.New("usage: stockport admin accept <order-id>")
		}
		if err := svc.Accept(ctx, rec.Token, args[1]); err != nil {
			return err
		}
		fmt.Println("order accepted; set a delivery date to finalize")
		return nil
	case "reject":
		if len(args) < 3 {
			return errors.New("usage: stockport admin reject <order-id> <order-number> [reason]")
		}
		reason := ""
		if len(args) > 3 {
			reason = args[3]
		}
		if err := svc.Reject(ctx, rec.Token, args[1], args[2], reason); err != nil {
			return err
		}
		fmt.Println("order rejected")
		return nil
	case "delivery":
		if len(args) != 4 {
			return errors.New("usage: stockport admin delivery <order-id> <order-number> <date>")
		}
		o, err := svc.SetDeliveryDate(ctx, rec.Token, args[1], args[2], args[3])
		if err != nil {
			return err
		}
		fmt.Printf("order %s finalized, delivery on %s\n", o.OrderNumber, o.DeliveryDate)
		return nil
	default:
		return fmt.Errorf("unknown admin command %q", args[0])
	}
}

func printOrders(orders []domain.Order) error {
	if len(orders) == 0 {
		fmt.Println("no orders")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ORDER\tSTATUS\tSITE\tDATE\tITEMS")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			o.OrderNumber, o.Status, o.SiteInfo.SiteName, o.OrderDate, len(o.Items))
	}
	return w.Flush()
}

func printOrderDetail(o *domain.Order) {
	fmt.Printf("order %s (%s)\n", o.OrderNumber, o.Status)
	fmt.Printf("site:    %s — %s, %s\n", o.SiteInfo.SiteName, o.SiteInfo.OrganizationName, o.SiteInfo.Location)
	fmt.Printf("cleaner: %s\n", o.CleanerEmail)
	fmt.Printf("date:    %s\n", o.OrderDate)
	if o.DeliveryDate != "" {
		fmt.Printf("delivery: %s\n", o.DeliveryDate)
	}
	if o.Notes != "" {
		fmt.Printf("notes:   %s\n", o.Notes)
	}
	for _, item := range o.Items {
		onSite := "not on site"
		if item.ItemAlreadyOnSite {
			onSite = "already on site"
		}
		fmt.Printf("  %dx %s (%s, %d available, %s, %d photos)\n",
			item.Quantity, item.ProductName, item.ProductType,
			item.ItemAvailableOnSite, onSite, len(item.ItemPhotos))
	}
	fmt.Printf("room photos: %d\n", len(o.RoomPhotos))
}
