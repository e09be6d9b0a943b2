package cmd

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/navychen2003/javen-sub011/core/index"
	"github.com/navychen2003/javen-sub011/core/search"
)

func newSearchCmd(opts *options) *cobra.Command {
	var limit int
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "search <dir> <query>...",
		Short: "Print the stored fields of matching documents",
		Long: `Each query argument is one of

  *:*            every document
  field:value    documents containing the term
  field:prefix*  documents containing a term starting with prefix
  field:a..b     documents containing a term in [a, b]; either end may be empty

Several arguments are combined: a leading + makes a clause required,
a leading - excludes its matches, and the rest are optional (at least
one of them must match unless a clause is required).`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(args[1:])
			if err != nil {
				return err
			}
			r, closeFn, err := openReader(args[0])
			if err != nil {
				return err
			}
			return withClose(closeFn, func() error {
				ss := search.NewIndexSearcher(r)
				out := cmd.OutOrStdout()
				if countOnly {
					n, err := ss.Count(q)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, n)
					return nil
				}
				td, err := ss.SearchTop(q, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%v hit(s) for %v\n", td.TotalHits, q)
				for _, docID := range td.Docs {
					doc, err := ss.Doc(docID)
					if err != nil {
						return err
					}
					var parts []string
					for _, f := range doc.Fields() {
						parts = append(parts, fmt.Sprintf("%v=%q", f.Name(), f.StringValue()))
					}
					fmt.Fprintf(out, "%v\t%v\n", docID, strings.Join(parts, " "))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of documents to print")
	cmd.Flags().BoolVar(&countOnly, "count", false, "Only print the number of hits")

	return cmd
}

func parseQuery(args []string) (search.Query, error) {
	if len(args) == 1 && !strings.HasPrefix(args[0], "+") && !strings.HasPrefix(args[0], "-") {
		return parseClause(args[0])
	}
	bq := search.NewBooleanQuery()
	for _, arg := range args {
		occur := search.SHOULD
		switch {
		case strings.HasPrefix(arg, "+"):
			occur, arg = search.MUST, arg[1:]
		case strings.HasPrefix(arg, "-"):
			occur, arg = search.MUST_NOT, arg[1:]
		}
		q, err := parseClause(arg)
		if err != nil {
			return nil, err
		}
		if err = bq.Add(q, occur); err != nil {
			return nil, err
		}
	}
	return bq, nil
}

func parseClause(s string) (search.Query, error) {
	if s == "*:*" {
		return search.NewMatchAllDocsQuery(), nil
	}
	field, text, ok := strings.Cut(s, ":")
	if !ok || field == "" {
		return nil, errors.Errorf("invalid query %q, want field:value", s)
	}
	if lower, upper, ok := strings.Cut(text, ".."); ok {
		return search.NewTermRangeQueryFromStrings(field, lower, upper, true, true), nil
	}
	if prefix, ok := strings.CutSuffix(text, "*"); ok {
		return search.NewPrefixQuery(index.NewTerm(field, prefix)), nil
	}
	return search.NewTermQuery(index.NewTerm(field, text)), nil
}
