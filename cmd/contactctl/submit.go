package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-isatty"

	"github.com/craftcode/landing-backend/internal/bootstrap"
	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/contact/service"
)

// SubmitCmd drives one form controller from the terminal
type SubmitCmd struct {
	Name        string `help:"Visitor name."`
	Email       string `help:"Visitor e-mail."`
	Phone       string `help:"Visitor phone."`
	Project     string `help:"Project description."`
	Interactive bool   `help:"Prompt for every field, using flag values as defaults." short:"i"`
}

func (s *SubmitCmd) draft() domain.SubmissionDraft {
	return domain.SubmissionDraft{Name: s.Name, Email: s.Email, Phone: s.Phone, Project: s.Project}
}

func (s *SubmitCmd) Run(ctx context.Context, g *Globals) error {
	draft := s.draft()

	missing := missingFields(draft)
	if s.Interactive || len(missing) > 0 {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			if len(missing) > 0 {
				return fmt.Errorf("missing required fields: %s", joinFields(missing))
			}
		} else {
			prompted, err := promptDraft(draft, s.Interactive)
			if err != nil {
				return err
			}
			draft = prompted
		}
	}

	if err := checkDraft(draft); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	backends, err := bootstrap.BuildInserter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	defer backends.Close()

	return runSubmit(ctx, os.Stdout, backends.Inserter, draft)
}

// runSubmit feeds the draft through a fresh controller and prints each transition
func runSubmit(ctx context.Context, w io.Writer, ins service.Inserter, draft domain.SubmissionDraft) error {
	ctrl := service.NewController(ins)
	defer ctrl.Close()

	for _, f := range domain.Fields {
		if err := ctrl.UpdateField(f, draft.Value(f)); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "state: %s -> %s\n", ctrl.State().Phase, domain.PhaseSubmitting)
	st, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "state: %s -> %s\n", domain.PhaseSubmitting, st.Phase)

	if st.Phase == domain.PhaseFailed {
		return fmt.Errorf("%w: %s", errSubmissionFailed, st.Message)
	}
	_, _ = fmt.Fprintln(w, "submission stored")
	return nil
}

func missingFields(d domain.SubmissionDraft) []domain.Field {
	var out []domain.Field
	for _, f := range domain.Fields {
		if strings.TrimSpace(d.Value(f)) == "" {
			out = append(out, f)
		}
	}
	return out
}

func joinFields(fields []domain.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

var validate = validator.New()

// checkDraft applies the same required and e-mail rules as the web form
func checkDraft(d domain.SubmissionDraft) error {
	if missing := missingFields(d); len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", joinFields(missing))
	}
	if err := validate.Var(d.Email, "email"); err != nil {
		return fmt.Errorf("invalid email %q", d.Email)
	}
	return nil
}

var fieldPrompts = map[domain.Field]string{
	domain.FieldName:    "Name:",
	domain.FieldEmail:   "E-mail:",
	domain.FieldPhone:   "Phone:",
	domain.FieldProject: "Tell us about your project:",
}

func promptDraft(d domain.SubmissionDraft, all bool) (domain.SubmissionDraft, error) {
	for _, f := range domain.Fields {
		current := d.Value(f)
		if !all && strings.TrimSpace(current) != "" {
			continue
		}

		var prompt survey.Prompt = &survey.Input{Message: fieldPrompts[f], Default: current}
		if f == domain.FieldProject {
			prompt = &survey.Multiline{Message: fieldPrompts[f], Default: current}
		}

		opts := []survey.AskOpt{survey.WithValidator(survey.Required)}
		if f == domain.FieldEmail {
			opts = append(opts, survey.WithValidator(func(ans interface{}) error {
				return validate.Var(ans, "email")
			}))
		}

		var out string
		if err := survey.AskOne(prompt, &out, opts...); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return d, errors.New("submission cancelled")
			}
			return d, err
		}
		d = d.With(f, out)
	}
	return d, nil
}
