package cli

import (
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/gravadigital/drawnames-api/internal/domain/draw"
)

// DrawOptions holds flags for the draw command.
type DrawOptions struct {
	File     string
	Seed     uint64
	Attempts int
	Swaps    int
}

// DrawResult is the JSON form of drawctl draw.
type DrawResult struct {
	Method      draw.Method `json:"method"`
	Attempts    int         `json:"attempts"`
	Assignments []draw.Edge `json:"assignments"`
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawOptions{}
	defaults := draw.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw names for a roster and print who gives to whom",
		Long: `Draw names for a roster and print who gives to whom.

The output shows every pair, so it is meant for an organizer running the
draw offline. --seed makes the draw reproducible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(rootOpts, opts, cmd)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "roster YAML file")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for a reproducible draw (0 uses a secure random source)")
	cmd.Flags().IntVar(&opts.Attempts, "attempts", defaults.AttemptsPerParticipant, "shuffle attempts per participant before the matching fallback")
	cmd.Flags().IntVar(&opts.Swaps, "swaps", defaults.SwapsPerParticipant, "swap proposals per participant for the matching fallback")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runDraw(rootOpts *RootOptions, opts *DrawOptions, cmd *cobra.Command) error {
	roster, err := LoadRoster(opts.File)
	if err != nil {
		return err
	}
	set, err := roster.Set()
	if err != nil {
		return err
	}

	genOpts := draw.Options{
		AttemptsPerParticipant: opts.Attempts,
		SwapsPerParticipant:    opts.Swaps,
	}
	if opts.Seed != 0 {
		rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
		genOpts.Rand = func() *rand.Rand { return rng }
	}

	res, err := draw.NewGenerator(genOpts).Generate(set)
	if err != nil {
		return err
	}

	result := DrawResult{Method: res.Method, Attempts: res.Attempts}
	for _, giver := range set.Participants() {
		recipient, _ := res.Assignment.Recipient(giver)
		result.Assignments = append(result.Assignments, draw.Edge{Giver: giver, Recipient: recipient})
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		return writeJSON(out, result)
	}
	for _, e := range result.Assignments {
		writef(out, "%s -> %s\n", e.Giver, e.Recipient)
	}
	return nil
}
