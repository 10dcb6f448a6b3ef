package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/craftcode/landing-backend/internal/bootstrap"
	"github.com/craftcode/landing-backend/internal/contact/notify"
)

// RecentCmd lists the latest leads kept by the notifier
type RecentCmd struct {
	Limit  int  `help:"Number of leads to show." default:"10"`
	Follow bool `help:"Keep running and print new leads as they arrive." short:"f"`
}

func (r *RecentCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("recent: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return errors.New("recent: REDIS_ADDR is not set")
	}

	client, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("recent: %w", err)
	}
	defer client.Close()

	pub := notify.NewPublisher(client, cfg.Redis.Channel)
	leads, err := pub.Recent(ctx, r.Limit)
	if err != nil {
		return fmt.Errorf("recent: %w", err)
	}
	if err := printLeads(os.Stdout, leads); err != nil {
		return err
	}
	if !r.Follow {
		return nil
	}
	return followLeads(ctx, os.Stdout, pub)
}

// followLeads prints every lead published after the subscription is confirmed, until ctx ends
func followLeads(ctx context.Context, out io.Writer, pub *notify.Publisher) error {
	sub := pub.Subscribe(ctx)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("recent: subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev notify.LeadEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			writeLead(w, ev)
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func printLeads(out io.Writer, leads []notify.LeadEvent) error {
	if len(leads) == 0 {
		_, err := fmt.Fprintln(out, "no recent leads")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tNAME\tEMAIL\tPHONE\tPROJECT")
	for _, l := range leads {
		writeLead(w, l)
	}
	return w.Flush()
}

func writeLead(w io.Writer, l notify.LeadEvent) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		l.CreatedAt.Local().Format(time.DateTime),
		l.Name,
		l.Email,
		l.Phone,
		truncate(l.ProjectDescription, 40),
	)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
