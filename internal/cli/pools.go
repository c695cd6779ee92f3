package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagPoolsSeason int
	flagPoolsRegion int
	flagPoolsGroup  int
)

// newPoolsCmd lists the pools a scrape would cover, either for a whole
// season or narrowed to one region/age group combination.
func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List the pools a scrape would cover",
		RunE:  runPools,
	}

	cmd.Flags().IntVar(&flagPoolsSeason, "season", 0, "Season value (required)")
	cmd.Flags().IntVar(&flagPoolsRegion, "region", 0, "Region value (0 = all)")
	cmd.Flags().IntVar(&flagPoolsGroup, "group", 0, "Age group value (0 = all)")

	cmd.MarkFlagRequired("season")

	return cmd
}

func runPools(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if flagPoolsRegion != 0 && flagPoolsGroup != 0 {
		pools, err := a.ref.Pools(ctx, flagPoolsSeason, flagPoolsRegion, flagPoolsGroup)
		if err != nil {
			return fmt.Errorf("listing pools: %w", err)
		}
		return WritePools(os.Stdout, pools, format)
	}

	pools, err := a.ref.AllPools(ctx, flagPoolsSeason)
	if err != nil {
		return fmt.Errorf("listing pools: %w", err)
	}
	return WritePools(os.Stdout, pools, format)
}
