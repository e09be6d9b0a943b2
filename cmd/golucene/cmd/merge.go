package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMergeCmd(opts *options) *cobra.Command {
	var maxSegments int
	var expungeDeletes bool

	cmd := &cobra.Command{
		Use:   "merge <dir>",
		Short: "Force merge the index down to at most N segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxSegments < 1 {
				return errors.Errorf("--max-segments must be >= 1, got %v", maxSegments)
			}
			w, closeFn, err := opts.openWriter(args[0])
			if err != nil {
				return err
			}
			return withClose(closeFn, func() error {
				before := w.SegmentCount()
				if expungeDeletes {
					err = w.ForceMergeDeletes(cmd.Context(), true)
				} else {
					err = w.ForceMerge(cmd.Context(), maxSegments, true)
				}
				if err != nil {
					return err
				}
				if err = w.Commit(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "segments: %v -> %v\n", before, w.SegmentCount())
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&maxSegments, "max-segments", 1, "Maximum number of segments to leave")
	cmd.Flags().BoolVar(&expungeDeletes, "expunge-deletes", false, "Only merge segments with deletions")

	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <dir>",
		Short: "Print the segments of the last commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openReader(args[0])
			if err != nil {
				return err
			}
			return withClose(closeFn, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "version %v, %v docs (%v deleted), %v segment(s)\n",
					r.Version(), r.NumDocs(), r.NumDeletedDocs(), len(r.Leaves()))
				for k, v := range r.UserData() {
					fmt.Fprintf(out, "  %v=%v\n", k, v)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SEGMENT\tDOCS\tDELETED\tBYTES\tCOMPOUND")
				for _, leaf := range r.Leaves() {
					info := leaf.Reader.SegmentInfo()
					size, err := info.SizeInBytes()
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%v\t%v\t%v\t%v\t%v\n", info.Info.Name,
						info.Info.DocCount(), info.DelCount(), size, info.Info.IsCompoundFile())
				}
				return tw.Flush()
			})
		},
	}
}
