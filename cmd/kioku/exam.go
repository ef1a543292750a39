package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/service/review"
	"github.com/spf13/cobra"
)

func newExamCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Assemble, grade, and abandon exams",
	}
	cmd.AddCommand(
		newExamCreateCommand(c),
		newExamSubmitCommand(c),
		newExamCompleteCommand(c),
		newExamDeleteCommand(c),
	)
	return cmd
}

func newExamCreateCommand(c *cli) *cobra.Command {
	var (
		req  review.CreateExamRequest
		mode string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Lock due candidates into a new exam",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.ParseMode(mode)
			if err != nil {
				return err
			}
			req.Mode = m

			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				exam, err := app.assembler.CreateExam(ctx, req)
				if err != nil {
					return err
				}
				return c.print(exam)
			})
		},
	}
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject to draw from")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeMaterialQuestion), modeUsage(""))
	cmd.Flags().IntVar(&req.Count, "count", 10, "maximum number of items")
	cmd.Flags().StringSliceVar(&req.Filter.TargetIDs, "include", nil, "only consider these item ids")
	cmd.Flags().StringSliceVar(&req.Filter.ExcludeTargetIDs, "exclude", nil, "never select these item ids")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newExamSubmitCommand(c *cli) *cobra.Command {
	var (
		examID  string
		results []string
	)
	cmd := &cobra.Command{
		Use:     "submit",
		Short:   "Record graded results and complete the exam",
		Example: "  kioku exam submit --exam 3f0c... --result q1=true --result q2=false",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseExamID(examID)
			if err != nil {
				return err
			}
			parsed, err := parseResults(results)
			if err != nil {
				return err
			}

			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				exam, summary, err := app.reconciler.SubmitResults(ctx, id, parsed)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"exam": exam, "summary": summary})
			})
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "", "exam id")
	cmd.Flags().StringArrayVar(&results, "result", nil, "target=true|false, repeatable")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

func newExamCompleteCommand(c *cli) *cobra.Command {
	var examID string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Complete an exam using the results already recorded on it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseExamID(examID)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				exam, summary, err := app.reconciler.Complete(ctx, id)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"exam": exam, "summary": summary})
			})
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "", "exam id")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

func newExamDeleteCommand(c *cli) *cobra.Command {
	var examID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an exam and return its candidates to the pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseExamID(examID)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				released, err := app.reconciler.DeleteExam(ctx, id)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"exam_id": id, "locks_released": released})
			})
		},
	}
	cmd.Flags().StringVar(&examID, "exam", "", "exam id")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

// parseExamID reads an exam id flag.
func parseExamID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: exam %q: %v", domain.ErrInvalidID, raw, err)
	}
	return id, nil
}

// modeUsage lists the known modes for --mode help text.
func modeUsage(prefix string) string {
	names := make([]string, len(domain.Modes))
	for i, m := range domain.Modes {
		names[i] = string(m)
	}
	return prefix + strings.Join(names, " or ")
}

// parseResults reads target=bool pairs.
func parseResults(raw []string) ([]domain.ItemResult, error) {
	results := make([]domain.ItemResult, 0, len(raw))
	for _, r := range raw {
		target, value, ok := strings.Cut(r, "=")
		target = strings.TrimSpace(target)
		if !ok || target == "" {
			return nil, fmt.Errorf("invalid result %q: want target=true|false", r)
		}
		correct, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid result %q: %w", r, err)
		}
		results = append(results, domain.ItemResult{TargetID: target, Correct: correct})
	}
	return results, nil
}
