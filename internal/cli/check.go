package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
)

// CheckResult is the JSON form of drawctl check.
type CheckResult struct {
	Feasible   bool           `json:"feasible"`
	Blocking   []string       `json:"blocking_participants,omitempty"`
	Candidates map[string]int `json:"remaining_candidates"`
	Message    string         `json:"message,omitempty"`
}

// ErrNotFeasible makes drawctl exit non-zero when no draw is possible.
var ErrNotFeasible = errors.New("no valid assignment exists")

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a valid draw exists for a roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, file, cmd)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "roster YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCheck(opts *RootOptions, file string, cmd *cobra.Command) error {
	roster, err := LoadRoster(file)
	if err != nil {
		return err
	}
	set, err := roster.Set()
	if err != nil {
		return err
	}

	result := CheckResult{Candidates: make(map[string]int, set.Len())}
	for _, name := range set.Participants() {
		n, _ := set.RemainingCandidates(name)
		result.Candidates[name] = n
	}

	report, err := draw.Check(set)
	switch {
	case errors.Is(err, common.ErrTooFewParticipants):
		result.Message = err.Error()
	case err != nil:
		return err
	default:
		result.Feasible = report.Feasible
		result.Blocking = report.Blocking
		if rerr := report.Err(); rerr != nil {
			result.Message = rerr.Error()
		}
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		for _, name := range set.Participants() {
			writef(out, "%-20s %d candidate(s)\n", name, result.Candidates[name])
		}
		if result.Feasible {
			writef(out, "feasible: a valid draw exists\n")
		} else {
			writef(out, "infeasible: %s\n", result.Message)
			if len(result.Blocking) > 0 {
				writef(out, "fix exclusions for: %s\n", strings.Join(result.Blocking, ", "))
			}
		}
	}

	if !result.Feasible {
		return ErrNotFeasible
	}
	return nil
}
