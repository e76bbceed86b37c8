package main

import (
	"fmt"
	"strings"

	"github.com/ashureev/campus-assistant/internal/chatstate"
	"github.com/ashureev/campus-assistant/internal/tui"
	"github.com/spf13/cobra"
)

func newChatCommand(a *app) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message in the current conversation, or open the chat UI",
		Long: "With a message, sends it and prints the answer. Without one, or with --tui,\n" +
			"opens an interactive terminal chat.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			s := a.sessioner(sess)

			message := strings.TrimSpace(strings.Join(args, " "))
			if interactive || message == "" {
				ctrl := chatstate.New(s, a.logger)
				return tui.Run(ctx, ctrl)
			}

			resp, err := s.Send(ctx, message)
			if resp == nil {
				return a.explain(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Answer)
			if resp.Suggestion != "" {
				fmt.Fprintf(out, "\n%s\n", resp.Suggestion)
			}
			if resp.NeedsFurtherHelp {
				fmt.Fprintln(out, "(the assistant suggests following up)")
			}
			if err != nil {
				a.logger.Warn("Answer received but session state was not saved", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&interactive, "tui", false, "open the interactive terminal chat")
	return cmd
}
