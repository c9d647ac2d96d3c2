package main

import (
	"fmt"
	"strings"

	"examseed/cmd/examseed/ui"
	"examseed/internal/types"

	"github.com/spf13/cobra"
)

// fetchCmd dumps collections into the cache
var fetchCmd = &cobra.Command{
	Use:   "fetch [collections...]",
	Short: "Download collections from the service into the cache",
	Long: `Walks every page of the requested collections and stores each one as a
JSON array in the configured cache. Without arguments all collections are
fetched. Later runs can read parents from the cache with --from-cache.

Collections: regions, exam-centres, schools, students, exams,
exam-applications, exam-results`,
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	collections, err := parseCollections(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	counts, fetchErr := rt.seeder.Dump(ctx, collections)

	byName := make(map[string]int, len(counts))
	order := make([]string, len(collections))
	for i, c := range collections {
		order[i] = string(c)
	}
	for c, n := range counts {
		byName[string(c)] = n
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.FetchView(byName, order, ui.DefaultStyles()))

	if fetchErr != nil {
		return fmt.Errorf("fetch incomplete: %w", fetchErr)
	}
	return nil
}

// parseCollections resolves collection names and the common aliases. No
// names selects every collection.
func parseCollections(names []string) ([]types.Collection, error) {
	if len(names) == 0 {
		return append([]types.Collection{}, types.AllCollections...), nil
	}
	aliases := map[string]types.Collection{
		"centres":      types.CollectionCentres,
		"centers":      types.CollectionCentres,
		"applications": types.CollectionApplications,
		"results":      types.CollectionResults,
	}
	var out []types.Collection
	seen := make(map[types.Collection]bool)
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		c, ok := aliases[key]
		if !ok {
			for _, known := range types.AllCollections {
				if string(known) == key {
					c, ok = known, true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", n)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}
