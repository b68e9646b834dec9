package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/agentic-research/resgrid/api"
	"github.com/agentic-research/resgrid/internal/filter"
	"github.com/agentic-research/resgrid/internal/query"
	"github.com/agentic-research/resgrid/internal/resource"
)

// criteriaFlags collects the filter flags shared by list and count.
type criteriaFlags struct {
	query.Criteria
	pairs map[string]string
}

func addCriteriaFlags(fs *pflag.FlagSet, cf *criteriaFlags) {
	c := &cf.Criteria
	cols := make([]string, len(filter.Columns))
	for i, col := range filter.Columns {
		cols[i] = string(col)
	}
	fs.StringToStringVar(&cf.pairs, "filter", nil, "Filter as column=value, repeatable; columns: "+strings.Join(cols, ", "))
	fs.StringVar(&c.Name, "name", "", "Only resources whose name contains this text")
	fs.StringVar(&c.Type, "type", "", "Only resources whose content type contains this text")
	fs.StringVar(&c.Origin, "origin", "", "Only resources with a layer from an origin of the same kind as this named origin")
	fs.BoolVar(&c.Overridden, "overridden", false, "Only resources present in more than one origin")
	fs.StringVar(&c.Status, "status", "", "Only resources with this activation status (code or label)")
}

// filter resolves the flags against origins. Dedicated flags win over
// --filter pairs for the same column.
func (cf *criteriaFlags) filter(origins []resource.Origin) (filter.Filter, error) {
	c, err := query.ParseCriteria(cf.pairs)
	if err != nil {
		return nil, err
	}
	return c.Merge(cf.Criteria).Filter(origins)
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		criteria criteriaFlags
		offset   int
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible resources matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offset < 0 {
				return fmt.Errorf("--offset must not be negative, got %d", offset)
			}
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			f, err := criteria.filter(s.origins())
			if err != nil {
				return err
			}
			page, err := s.engine.Page(cmd.Context(), f, offset, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			_, _ = fmt.Fprintln(out, renderPage(page))
			return nil
		},
	}
	addCriteriaFlags(cmd.Flags(), &criteria)
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of matches to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of rows; negative for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

func newCountCmd(opts *globalOptions) *cobra.Command {
	var criteria criteriaFlags
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count visible resources matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			f, err := criteria.filter(s.origins())
			if err != nil {
				return err
			}
			n, err := s.engine.Count(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	addCriteriaFlags(cmd.Flags(), &criteria)
	return cmd
}

func renderPage(page *api.Page) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers("PATH", "TYPE", "ORIGINS", "OVERRIDDEN", "STATUS")
	for _, r := range page.Rows {
		typ := r.Type
		if r.Dir {
			typ = "folder"
		}
		overridden := ""
		if r.Overridden {
			overridden = "yes"
		}
		t.Row(r.ID, typ, strings.Join(r.Origins, ", "), overridden, r.Status)
	}

	shown := strconv.Itoa(page.Offset+1) + "-" + strconv.Itoa(page.Offset+len(page.Rows))
	if len(page.Rows) == 0 {
		shown = "0"
	}
	return t.String() + "\n" + MutedStyle.Render(fmt.Sprintf("%s of %d", shown, page.Total))
}
