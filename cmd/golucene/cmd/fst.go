package cmd

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/navychen2003/javen-sub011/core/util"
	"github.com/navychen2003/javen-sub011/core/util/fst"
)

func newFSTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fst",
		Short: "Build and query a finite state transducer over a word list",
	}
	cmd.AddCommand(newFSTBuildCmd())
	cmd.AddCommand(newFSTGetCmd())
	return cmd
}

func newFSTBuildCmd() *cobra.Command {
	var input string
	var pack bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an FST mapping each word to its ordinal and print its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(input)
			if err != nil {
				return err
			}
			t, err := buildWordFST(words, pack)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if t == nil {
				fmt.Fprintln(out, "empty input")
				return nil
			}
			fmt.Fprintf(out, "%v words, %v nodes, %v arcs, %v bytes, packed=%v\n",
				len(words), t.NodeCount(), t.ArcCount(), t.SizeInBytes(), t.IsPacked())
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "File with one word per line")
	cmd.Flags().BoolVar(&pack, "pack", false, "Pack the FST after building")
	cmd.MarkFlagRequired("input")

	return cmd
}

func newFSTGetCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "get <word>...",
		Short: "Look words up in the FST built from a word list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWords(input)
			if err != nil {
				return err
			}
			t, err := buildWordFST(words, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, word := range args {
				var v interface{}
				if t != nil {
					if v, err = fst.Get(t, []byte(word)); err != nil {
						return err
					}
				}
				if v == nil {
					fmt.Fprintf(out, "%v\tnot found\n", word)
				} else {
					fmt.Fprintf(out, "%v\t%v\n", word, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "File with one word per line")
	cmd.MarkFlagRequired("input")

	return cmd
}

// Returns the distinct non-empty lines of path in byte order.
func readWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanWords(f)
}

func scanWords(in io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var words []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w != "" && !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Strings(words)
	return words, nil
}

// Maps words[i] to i. Returns nil for no words.
func buildWordFST(words []string, pack bool) (*fst.FST, error) {
	outputs := fst.PositiveIntOutputsSingleton()
	var b *fst.Builder
	if pack {
		b = fst.NewBuilderWith(fst.INPUT_TYPE_BYTE1, 0, 0, true, true, math.MaxInt32,
			outputs, nil, true, true, 15)
	} else {
		b = fst.NewBuilder(fst.INPUT_TYPE_BYTE1, outputs)
	}
	for i, w := range words {
		if err := b.Add(fst.ToIntsRef([]byte(w), util.NewEmptyIntsRef()), int64(i)); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}
