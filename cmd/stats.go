package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/agentic-research/resgrid/internal/origin"
	"github.com/agentic-research/resgrid/internal/resource"
)

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the merged tree by origin kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			tree, ok := s.tree.Current().(*origin.MemoryTree)
			if !ok {
				return fmt.Errorf("stats unsupported for %T", s.tree.Current())
			}
			st := tree.Stats()

			kinds := make([]string, 0, len(st.ByKind))
			for k := range st.ByKind {
				kinds = append(kinds, string(k))
			}
			sort.Strings(kinds)

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(borderStyle).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return HeaderStyle.Padding(0, 1)
					}
					return cellStyle
				}).
				Headers("KIND", "RESOURCES")
			for _, k := range kinds {
				t.Row(k, strconv.FormatUint(st.ByKind[resource.Kind(k)], 10))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, t.String())
			_, _ = fmt.Fprintf(out, "resources: %d\noverridden: %d\nmodules: %d\n",
				st.Resources, st.Overridden, s.engine.Modules().Len())
			return nil
		},
	}
}
