package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/cleanhub/stockport/internal/api"
	"github.com/cleanhub/stockport/internal/capture"
	"github.com/cleanhub/stockport/internal/config"
	"github.com/cleanhub/stockport/internal/db"
	"github.com/cleanhub/stockport/internal/evidence"
	"github.com/cleanhub/stockport/internal/logging"
	"github.com/cleanhub/stockport/internal/session"
	"github.com/cleanhub/stockport/internal/store"
)

const usage = `usage: stockport <command> [args]

site commands:
  login <site-name> <password>        start a site session
  logout                              end the site session
  status                              show both sessions
  catalog                             list the site's products
  draft show                          show the current order draft
  draft email <address>               set the cleaner's email
  draft qty <line> <delta>            adjust requested quantity
  draft avail <line> <delta>          adjust available-on-site count
  draft onsite <line> <yes|no>        answer "items already on site"
  draft capture room                  capture the room evidence images
  draft capture item <line>           capture a line's evidence images
  draft remove-image room <n>         remove one room image
  draft remove-image item <line> <n>  remove one line image
  draft discard                       throw the draft away
  submit                              upload evidence and create the order

admin commands:
  admin login <username> <password>
  admin logout
  admin dashboard [all|new order|pending order|set delivery date]
  admin view <order-number>
  admin recent <site-id> <order-date>
  admin accept <order-id>
  admin reject <order-id> <order-number> [reason]
  admin delivery <order-id> <order-number> <date>
  admin history [all|accepted|rejected]
`

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.StateDBPath)
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close state database", "error", err)
		}
	}()

	spool, err := evidence.NewDiskStore(cfg.SpoolDir)
	if err != nil {
		logger.Error("failed to initialize evidence spool", "error", err)
		os.Exit(1)
	}

	sessions := store.NewSessionStore(database)
	a := &app{
		cfg:    cfg,
		logger: logger,
		client: api.New(cfg.APIBaseURL),
		drafts: store.NewDraftStore(database),
		spool:  spool,
		site: session.NewManager(session.Config{
			Namespace: session.NamespaceSite,
			TTL:       cfg.SiteSessionTTL,
		}, sessions, logger),
		admin: session.NewManager(session.Config{
			Namespace: session.NamespaceAdmin,
			TTL:       cfg.AdminSessionTTL,
		}, sessions, logger),
	}
	defer a.site.Close()
	defer a.admin.Close()

	if err := a.run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "stockport:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *api.Client
	drafts *store.DraftStore
	spool  evidence.Store
	site   *session.Manager
	admin  *session.Manager
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	switch args[0] {
	case "login":
		return a.cmdLogin(ctx, args[1:])
	case "logout":
		return a.cmdLogout(ctx)
	case "status":
		return a.cmdStatus(ctx)
	case "catalog":
		return a.cmdCatalog(ctx)
	case "draft":
		return a.cmdDraft(ctx, args[1:])
	case "submit":
		return a.cmdSubmit(ctx)
	case "admin":
		return a.cmdAdmin(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q (run stockport help)", args[0])
	}
}

func (a *app) cameraProvider() capture.Provider {
	return capture.NewDirProvider(a.cfg.CameraDir)
}

func (a *app) cameraFacing() capture.Facing {
	return capture.Facing(a.cfg.CameraFacing)
}
