package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

var (
	ttl string

	setCmd = &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			if ttl == "" {
				return fail(c.Set(cmd.Context(), args[0], args[1]))
			}
			exp, err := expiration.Parse(ttl)
			if err != nil {
				return err
			}
			return fail(c.SetWithExpiry(cmd.Context(), args[0], args[1], exp))
		},
	}

	getCmd = &cobra.Command{
		Use:   "get KEY",
		Short: "Print a value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			ent, ok, err := c.Entry(cmd.Context(), args[0])
			if err != nil {
				return fail(err)
			}
			if !ok {
				log.Debug("Key not found", "key", args[0])
				return errNotFound
			}
			fmt.Fprintln(cmd.OutOrStdout(), ent.Value)
			if !ent.ExpireAt.IsZero() {
				log.Debug("Entry expires", "at", ent.ExpireAt.Format(time.RFC3339), "in", humanize.Time(ent.ExpireAt))
			}
			return nil
		},
	}

	existsCmd = &cobra.Command{
		Use:   "exists KEY",
		Short: "Exit 0 if the key is live, 5 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			if !c.Exists(cmd.Context(), args[0]) {
				return errNotFound
			}
			return nil
		},
	}

	removeCmd = &cobra.Command{
		Use:     "rm KEY...",
		Aliases: []string{"remove"},
		Short:   "Remove keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			var errs []error
			for _, key := range args {
				if err := c.Remove(cmd.Context(), key); err != nil {
					errs = append(errs, err)
				}
			}
			return fail(errors.Join(errs...))
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			return fail(c.RemoveAll(cmd.Context()))
		},
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.RemoveExpired(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s expired entries\n", humanize.Comma(int64(n)))
			return fail(err)
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show disk tier usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			s := c.Stats()
			cfg := c.Config()
			limit := "unlimited"
			if cfg.MaxDiskBytes > 0 {
				limit = humanize.IBytes(cfg.MaxDiskBytes)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "location       : %s\n", s.StorageLocation)
			fmt.Fprintf(out, "entries        : %s\n", humanize.Comma(int64(s.DiskEntries)))
			fmt.Fprintf(out, "size           : %s (limit %s)\n", humanize.IBytes(uint64(s.DiskBytes)), limit)
			fmt.Fprintf(out, "default expiry : %s\n", cfg.DefaultExpiry)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().StringVar(&ttl, "ttl", "", `expiry for this entry: "never", a duration or an RFC 3339 time`)
}

// errNotFound exits quietly with status 5 so scripts can test for absence.
var errNotFound = &exitError{code: 5}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// fail attaches an exit code derived from err's kind.
func fail(err error) error {
	if err == nil || types.KindOf(err) == nil {
		return err
	}
	return &exitError{code: exitCodeFor(err), err: err}
}
