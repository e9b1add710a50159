package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gsubst/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var format string
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show substcheck build metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Current()
			info.Version = strings.TrimSpace(info.Version)
			if info.Version == "" {
				info.Version = "dev"
			}
			switch strings.ToLower(format) {
			case "pretty":
				color, err := useColor(cmd, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				renderVersionPretty(cmd.OutOrStdout(), info, full, color)
				return nil
			case "json":
				return renderVersionJSON(cmd.OutOrStdout(), info, full)
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	cmd.Flags().BoolVar(&full, "full", false, "include git commit and build date")
	return cmd
}

func renderVersionPretty(out io.Writer, info version.Info, full, color bool) {
	if full {
		info.GitCommit = valueOrUnknown(info.GitCommit)
		info.BuildDate = valueOrUnknown(info.BuildDate)
		fmt.Fprintln(out, info.String())
		return
	}
	v := info.Version
	if color {
		v = version.Colored(v)
	}
	fmt.Fprintf(out, "substcheck %s\n", v)
}

func renderVersionJSON(out io.Writer, info version.Info, full bool) error {
	payload := versionPayload{Tool: "substcheck", Version: info.Version}
	if full {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
