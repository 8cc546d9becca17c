package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/segpull/segpull/internal/download"
	"github.com/segpull/segpull/internal/engine/verify"
	"github.com/segpull/segpull/internal/tui/colors"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that lftp and the archive testers are installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		binary := currentSettings().Agent.Binary
		return runDoctor(cmd.Context(), cmd.OutOrStdout(), binary, verify.NewCLIVerifier())
	},
}

// toolFinder reports the tester installed for an archive family
type toolFinder interface {
	ToolFor(family string) (verify.Tool, bool)
}

// runDoctor prints the agent and tester status. Only a missing agent is an error;
// archives without a tester are still header checked.
func runDoctor(ctx context.Context, w io.Writer, binary string, tools toolFinder) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := termenv.NewOutput(w)
	ok := out.String("ok").Foreground(out.Color(string(colors.Green))).String()
	missing := out.String("missing").Foreground(out.Color(string(colors.Red))).String()

	info, agentErr := download.ProbeAgent(ctx, binary)
	if agentErr != nil {
		_, _ = fmt.Fprintf(out, "agent    %s  %v\n", missing, agentErr)
	} else {
		_, _ = fmt.Fprintf(out, "agent    %s  %s (version %s)\n", ok, info.Path, valueOr(info.Version, "unknown"))
	}

	for _, family := range verify.Families() {
		if tool, found := tools.ToolFor(family); found {
			_, _ = fmt.Fprintf(out, "%-8s %s  %s\n", family, ok, strings.Join(tool.Command("<file>"), " "))
		} else {
			_, _ = fmt.Fprintf(out, "%-8s %s  header check only\n", family, missing)
		}
	}

	if agentErr != nil {
		return fmt.Errorf("lftp is required: %w", agentErr)
	}
	return nil
}
