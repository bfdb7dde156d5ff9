package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vine_monitor/internal/locale"
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List hidden items, oldest first",
		Args:  cobra.NoArgs,
		Run:   runList,
	}
	listCmd.Flags().IntP("limit", "l", 0, "Show only the newest N items")

	rootCmd.AddCommand(
		listCmd,
		&cobra.Command{
			Use:   "hide <asin>...",
			Short: "Hide items",
			Args:  cobra.MinimumNArgs(1),
			Run:   runHide,
		},
		&cobra.Command{
			Use:   "show <asin>...",
			Short: "Un-hide items",
			Args:  cobra.MinimumNArgs(1),
			Run:   runShow,
		},
		&cobra.Command{
			Use:   "gc",
			Short: "Run age and capacity garbage collection",
			Args:  cobra.NoArgs,
			Run:   runGC,
		},
		&cobra.Command{
			Use:   "size",
			Short: "Show storage usage",
			Args:  cobra.NoArgs,
			Run:   runSize,
		},
	)
}

func runList(cmd *cobra.Command, _ []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, st, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	entries := s.Entries()
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for _, e := range entries {
		when := "unknown"
		if !e.HiddenAt.IsZero() {
			when = humanize.Time(e.HiddenAt)
		}
		fmt.Printf("%-12s %s\n", e.ASIN, when)
	}
	fmt.Printf("%d hidden items\n", s.Len())
}

func runHide(cmd *cobra.Command, args []string) {
	s, st, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	for _, asin := range args {
		asin = strings.ToUpper(strings.TrimSpace(asin))
		if err := s.AddItem(cmd.Context(), asin); err != nil {
			exitErr("hide "+asin, err)
		}
		fmt.Printf("hidden %s\n", asin)
	}
}

func runShow(cmd *cobra.Command, args []string) {
	s, st, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	for _, asin := range args {
		asin = strings.ToUpper(strings.TrimSpace(asin))
		if err := s.RemoveItem(cmd.Context(), asin); err != nil {
			exitErr("show "+asin, err)
		}
		fmt.Printf("shown %s\n", asin)
	}
}

func runGC(cmd *cobra.Command, _ []string) {
	s, st, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	before := s.Len()
	if err := s.CollectGarbage(cmd.Context()); err != nil {
		exitErr("gc", err)
	}
	fmt.Printf("%d items removed, %d remaining\n", before-s.Len(), s.Len())
}

func runSize(cmd *cobra.Command, _ []string) {
	s, st, err := openStore(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	used, err := st.BytesInUse(cmd.Context())
	if err != nil {
		exitErr("size", err)
	}
	limit := "unlimited"
	if quota > 0 {
		limit = locale.Bytes(quota)
	}
	fmt.Printf("%d hidden items, %s in use of %s\n", s.Len(), locale.Bytes(used), limit)
}
