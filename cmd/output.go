package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"homematch/internal/errs"
)

func validateOutputFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format %q (expected: text, json or yaml)", format)
}

// render prints value as json or yaml when --output asks for it, and calls
// text with a tabwriter otherwise.
func render(cmd *cobra.Command, value any, text func(w io.Writer) error) error {
	return renderTo(cmd.OutOrStdout(), outputFormat, value, text)
}

func renderTo(out io.Writer, format string, value any, text func(w io.Writer) error) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(value); err != nil {
			return errs.Wrap(err, "write json output")
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return errs.Wrap(err, "write yaml output")
		}
		if err := enc.Close(); err != nil {
			return errs.Wrap(err, "flush yaml output")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := text(w); err != nil {
		return errs.Wrap(err, "write text output")
	}
	if err := w.Flush(); err != nil {
		return errs.Wrap(err, "flush text output")
	}
	return nil
}

// rows writes tab-separated lines, stopping at the first write error.
func rows(w io.Writer, lines ...[]string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func requiredFlag(cmd *cobra.Command, name string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	return value, nil
}
