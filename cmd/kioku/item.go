package main

import (
	"context"
	"errors"

	"github.com/phrazzld/kioku-api/internal/domain"
	"github.com/phrazzld/kioku-api/internal/service/content"
	"github.com/spf13/cobra"
)

func newItemCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Register, update, and remove reviewable items",
	}
	cmd.AddCommand(newItemRegisterCommand(c), newItemUpdateCommand(c), newItemRemoveCommand(c))
	return cmd
}

func newItemRegisterCommand(c *cli) *cobra.Command {
	var (
		req  content.RegisterRequest
		mode string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an item and schedule its first review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.ParseMode(mode)
			if err != nil {
				return err
			}
			req.Mode = m

			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				item, candidate, err := app.content.Register(ctx, req)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"item": item, "candidate": candidate})
			})
		},
	}
	cmd.Flags().StringVar(&req.ID, "id", "", "item id")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject the item belongs to")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeMaterialQuestion), modeUsage(""))
	cmd.Flags().StringVar(&req.Text, "text", "", "question text or kanji")
	cmd.Flags().StringVar(&req.Reading, "reading", "", "kanji reading")
	cmd.Flags().StringVar(&req.Meaning, "meaning", "", "kanji meaning")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newItemUpdateCommand(c *cli) *cobra.Command {
	var id, reading, meaning string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Set an item's reading and meaning",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				return app.content.UpdateFields(ctx, id, reading, meaning)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "item id")
	cmd.Flags().StringVar(&reading, "reading", "", "kanji reading")
	cmd.Flags().StringVar(&meaning, "meaning", "", "kanji meaning")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newItemRemoveCommand(c *cli) *cobra.Command {
	var subject, id string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an item and its open candidate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" || id == "" {
				return errors.New("--subject and --id are required")
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, app *application) error {
				removed, err := app.content.Remove(ctx, subject, id)
				if err != nil {
					return err
				}
				return c.print(map[string]any{"item_id": id, "candidates_removed": removed})
			})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject the item belongs to")
	cmd.Flags().StringVar(&id, "id", "", "item id")
	return cmd
}
