package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/navychen2003/javen-sub011/core/document"
	"github.com/navychen2003/javen-sub011/core/index"
)

// One line of an index input file.
type jsonDoc struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

func newIndexCmd(opts *options) *cobra.Command {
	var input string
	var idField string

	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Add or update documents from a JSON lines file",
		Long: `Reads one document per line, for example:

  {"id":"42","fields":{"title":"Bat recycling","body":"..."}}

The id is indexed untokenized and stored; every other field is
tokenized and stored. A document whose id already exists replaces the
old one. Changes are committed at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return err
			}
			defer f.Close()
			return runIndex(cmd, opts, args[0], idField, f)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "JSON lines file to index")
	cmd.Flags().StringVar(&idField, "id-field", "id", "Field holding the document id")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runIndex(cmd *cobra.Command, opts *options, path, idField string, in io.Reader) error {
	w, closeFn, err := opts.openWriter(path)
	if err != nil {
		return err
	}
	return withClose(closeFn, func() error {
		ctx := cmd.Context()
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		var added, updated, line int
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var jd jsonDoc
			if err := json.Unmarshal([]byte(text), &jd); err != nil {
				return errors.Wrapf(err, "line %v", line)
			}
			doc := toFields(idField, jd)
			if jd.ID == "" {
				err = w.AddDocument(ctx, doc)
				added++
			} else {
				err = w.UpdateDocument(ctx, index.NewTerm(idField, jd.ID), doc)
				updated++
			}
			if err != nil {
				return errors.Wrapf(err, "line %v", line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		if err := w.Commit(); err != nil {
			return err
		}
		numDocs, err := w.NumDocs()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %v, updated %v, %v docs in %v segment(s)\n",
			added, updated, numDocs, w.SegmentCount())
		return nil
	})
}

// Field order follows the names, so stored documents read back stable.
func toFields(idField string, jd jsonDoc) []document.IndexableField {
	var fields []document.IndexableField
	if jd.ID != "" {
		fields = append(fields, document.NewStringField(idField, jd.ID, document.STORE_YES))
	}
	names := make([]string, 0, len(jd.Fields))
	for name := range jd.Fields {
		if name != idField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fields = append(fields, document.NewTextFieldFromString(name, jd.Fields[name], document.STORE_YES))
	}
	return fields
}

func newDeleteCmd(opts *options) *cobra.Command {
	var terms []string

	cmd := &cobra.Command{
		Use:   "delete <dir>",
		Short: "Delete every document containing a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var delTerms []index.Term
			for _, s := range terms {
				t, err := parseTerm(s)
				if err != nil {
					return err
				}
				delTerms = append(delTerms, t)
			}
			if len(delTerms) == 0 {
				return errors.New("at least one --term is required")
			}
			return runDelete(cmd, opts, args[0], delTerms)
		},
	}

	cmd.Flags().StringArrayVar(&terms, "term", nil, "Term to delete, as field:value (repeatable)")

	return cmd
}

func runDelete(cmd *cobra.Command, opts *options, path string, terms []index.Term) error {
	w, closeFn, err := opts.openWriter(path)
	if err != nil {
		return err
	}
	return withClose(closeFn, func() error {
		before, err := w.NumDocs()
		if err != nil {
			return err
		}
		if err = w.DeleteDocuments(terms...); err != nil {
			return err
		}
		if err = w.Commit(); err != nil {
			return err
		}
		after, err := w.NumDocs()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %v doc(s), %v left\n", before-after, after)
		return nil
	})
}

func parseTerm(s string) (index.Term, error) {
	field, text, ok := strings.Cut(s, ":")
	if !ok || field == "" {
		return index.Term{}, errors.Errorf("invalid term %q, want field:value", s)
	}
	return index.NewTerm(field, text), nil
}
