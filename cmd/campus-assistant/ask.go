package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/campus-assistant/internal/retry"
	"github.com/spf13/cobra"
)

func newAskCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-off question without conversation memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			var (
				answer string
				err    error
			)
			if a.useRetry {
				answer, err = retry.Do(cmd.Context(), a.policy(), func(ctx context.Context, _ int) (string, error) {
					return a.client.SimpleChat(ctx, question)
				})
			} else {
				answer, err = a.client.SimpleChat(cmd.Context(), question)
			}
			if err != nil {
				return a.explain(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
