package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/craftcode/landing-backend/config"
	"github.com/craftcode/landing-backend/internal/bootstrap"
	"github.com/craftcode/landing-backend/internal/contact/domain"
)

// CheckCmd reports the persistence and notification setup
type CheckCmd struct{}

type checkReport struct {
	backend  string
	table    string
	rest     string
	database string
	redis    string
	reset    string
}

func (c *CheckCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	backends, err := bootstrap.BuildInserter(ctx, cfg)
	if err != nil {
		// Only the database open can fail here; report it before exiting.
		_ = writeReport(os.Stdout, newReport(cfg, &bootstrap.Backends{Name: bootstrap.BackendSQL}, err))
		return fmt.Errorf("check: %w", err)
	}
	defer backends.Close()

	if err := writeReport(os.Stdout, newReport(cfg, backends, nil)); err != nil {
		return err
	}
	if backends.Name == bootstrap.BackendNone {
		return fmt.Errorf("check: %s", domain.NotConfiguredMessage)
	}
	return nil
}

// newReport describes the setup; openErr is the database open failure, if any
func newReport(cfg *config.Config, b *bootstrap.Backends, openErr error) checkReport {
	r := checkReport{
		backend:  b.Name,
		table:    cfg.Supabase.Table,
		rest:     "missing",
		database: "disabled",
		redis:    "disabled",
		reset:    cfg.Contact.ResetDelay.String(),
	}
	if cfg.PersistenceConfigured() {
		r.rest = "configured"
	}
	switch {
	case openErr != nil:
		r.database = "down"
	case b.DB != nil:
		r.database = "up"
	}
	switch {
	case b.Redis != nil:
		r.redis = "up"
	case cfg.Redis.Addr == "":
	case openErr != nil:
		r.redis = "not checked"
	default:
		r.redis = "down"
	}
	return r
}

func writeReport(out io.Writer, r checkReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "backend\t%s\n", r.backend)
	fmt.Fprintf(w, "table\t%s\n", r.table)
	fmt.Fprintf(w, "rest settings\t%s\n", r.rest)
	fmt.Fprintf(w, "database\t%s\n", r.database)
	fmt.Fprintf(w, "redis\t%s\n", r.redis)
	fmt.Fprintf(w, "reset delay\t%s\n", r.reset)
	return w.Flush()
}
