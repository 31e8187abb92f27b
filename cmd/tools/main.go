package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/baxromumarov/page-analyzer/internal/config"
	"github.com/baxromumarov/page-analyzer/internal/core"
	"github.com/baxromumarov/page-analyzer/internal/httpx"
	"github.com/baxromumarov/page-analyzer/internal/store"
)

type Globals struct {
	DB        string        `help:"Database URL." env:"DATABASE_URL"`
	Timeout   time.Duration `help:"Page fetch timeout." default:"15s"`
	UserAgent string        `help:"User-Agent for page checks." default:"page-analyzer-bot/1.0"`
	Resolve   bool          `help:"Reject hosts without a DNS record." default:"true" negatable:""`
}

type cli struct {
	Globals

	Migrate  migrateCmd  `cmd:"" help:"Apply the database schema."`
	Register registerCmd `cmd:"" help:"Register a url."`
	Check    checkCmd    `cmd:"" help:"Run a page check for a stored url."`
	List     listCmd     `cmd:"" help:"List registered urls."`
	Show     showCmd     `cmd:"" help:"Show a url and its checks."`
}

type env struct {
	ctx     context.Context
	store   *store.Store
	service *core.Service
	out     io.Writer
}

type migrateCmd struct{}

func (c *migrateCmd) Run(e *env) error {
	if err := e.store.RunMigrations(e.ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "migrations executed successfully")
	return nil
}

type registerCmd struct {
	URL string `arg:"" help:"URL to register."`
}

func (c *registerCmd) Run(e *env) error {
	u, err := e.service.RegisterURL(e.ctx, c.URL)
	if err != nil {
		return err
	}
	return printJSON(e.out, u)
}

type checkCmd struct {
	ID int64 `arg:"" help:"Url id."`
}

func (c *checkCmd) Run(e *env) error {
	check, err := e.service.RunCheck(e.ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(e.out, check)
}

type listCmd struct {
	Page int `help:"Page number." default:"1"`
}

func (c *listCmd) Run(e *env) error {
	page, err := e.service.ListURLs(e.ctx, c.Page)
	if err != nil {
		return err
	}
	return printJSON(e.out, page)
}

type showCmd struct {
	ID int64 `arg:"" help:"Url id."`
}

func (c *showCmd) Run(e *env) error {
	detail, err := e.service.ShowURL(e.ctx, c.ID)
	if err != nil {
		return err
	}
	return printJSON(e.out, detail)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newParser(c *cli) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("page-analyzer-tools"),
		kong.Description("Maintenance commands for page-analyzer."),
		kong.UsageOnError(),
	)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg := config.Load()

	var c cli
	parser, err := newParser(&c)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if c.DB == "" {
		c.DB = cfg.Database.URL
	}

	dbStore, err := store.NewStore(c.DB, cfg.Database.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer dbStore.Close()

	opts := []core.Option{
		core.WithPageSize(cfg.Server.PageSize),
		core.WithLogger(cfg.Log.NewLogger()),
	}
	if c.Resolve {
		opts = append(opts, core.WithResolver(net.DefaultResolver))
	}
	fetcher := httpx.NewCollyFetcher(c.UserAgent, httpx.WithTimeout(c.Timeout))

	return kctx.Run(&env{
		ctx:     ctx,
		store:   dbStore,
		service: core.NewService(dbStore, fetcher, opts...),
		out:     out,
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "page-analyzer-tools:", err)
		os.Exit(1)
	}
}
