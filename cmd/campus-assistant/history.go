package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ashureev/campus-assistant/internal/assistant"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newHistoryCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history kept by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("--output must be text, json or yaml, got %q", output)
			}

			ctx := cmd.Context()
			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			res, err := sess.History(ctx)
			if err != nil {
				return a.explain(err)
			}
			return writeHistory(cmd.OutOrStdout(), output, res)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func writeHistory(w io.Writer, format string, res *assistant.HistoryResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	case "yaml":
		var v any = res.Record
		if res.IsError() {
			v = res.Err
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}

	if res.IsError() {
		_, err := fmt.Fprintf(w, "error: %s\n", res.Err.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "user:   %s\nthread: %s\n\n%s\n", res.Record.UserID, res.Record.ThreadID, res.Record.History)
	return err
}
