package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/huynhanx03/pagekv/pkg/index"
	"github.com/huynhanx03/pagekv/pkg/kv"
)

func newPutCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withDB(func(db *kv.DB) error {
				return db.Put([]byte(args[0]), []byte(args[1]))
			})
		},
	}
}

func newGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withDB(func(db *kv.DB) error {
				v, ok, err := db.Get([]byte(args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("key %q not found", args[0])
				}
				_, err = cmd.OutOrStdout().Write(append(v, '\n'))
				return err
			})
		},
	}
}

func newDelCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "del KEY",
		Aliases: []string{"delete", "rm"},
		Short:   "Remove a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.withDB(func(db *kv.DB) error {
				return db.Delete([]byte(args[0]))
			})
		},
	}
}

func newDumpCmd(f *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every pair, quoted, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.withDB(func(db *kv.DB) error {
				out := cmd.OutOrStdout()
				n := 0
				return db.Traverse(func(k, v []byte) error {
					if limit > 0 && n == limit {
						return index.ErrStop
					}
					n++
					_, err := fmt.Fprintf(out, "%s\t%s\n", strconv.Quote(string(k)), strconv.Quote(string(v)))
					return err
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after n pairs")
	return cmd
}

func newStatsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print file, cache and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.withDB(func(db *kv.DB) error {
				st, err := db.Stats()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				s := st.Store
				fmt.Fprintf(out, "path:        %s\n", db.Path())
				fmt.Fprintf(out, "kind:        %s\n", st.Kind)
				fmt.Fprintf(out, "page size:   %s\n", humanize.IBytes(uint64(s.PageSize)))
				fmt.Fprintf(out, "pages:       %s (%s)\n", humanize.Comma(int64(s.Pages)),
					humanize.IBytes(uint64(s.Pages)*uint64(s.PageSize)))
				fmt.Fprintf(out, "cache:       %d/%d pages\n", s.Cached, s.CacheSize)
				fmt.Fprintf(out, "free blocks: %d/%d\n", s.FreeBlocks, s.Blocks)
				fmt.Fprintf(out, "reads:       %s\n", humanize.Comma(int64(s.Reads)))
				fmt.Fprintf(out, "writes:      %s\n", humanize.Comma(int64(s.Writes)))
				switch {
				case st.BTree != nil:
					b := st.BTree
					fmt.Fprintf(out, "keys:        %s\n", humanize.Comma(int64(b.Keys)))
					fmt.Fprintf(out, "depth:       %d\n", b.Depth)
					fmt.Fprintf(out, "leaves:      %s\n", humanize.Comma(int64(b.Leaves)))
					fmt.Fprintf(out, "internal:    %s\n", humanize.Comma(int64(b.Internal)))
				case st.Hash != nil:
					h := st.Hash
					fmt.Fprintf(out, "keys:        %s\n", humanize.Comma(int64(h.Keys)))
					fmt.Fprintf(out, "level:       %d\n", h.Level)
					fmt.Fprintf(out, "next split:  %d\n", h.NextSplit)
					fmt.Fprintf(out, "buckets:     %s (%s pages)\n", humanize.Comma(int64(h.Buckets)),
						humanize.Comma(int64(h.BucketPages)))
					fmt.Fprintf(out, "index pages: %d\n", h.IndexPages)
				}
				return nil
			})
		},
	}
}
