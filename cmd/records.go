package cmd

import (
	"fmt"

	"github.com/petra/ttsync/internal/dateparse"
	"github.com/petra/ttsync/internal/output"
	"github.com/spf13/cobra"
)

var (
	listFrom string
	listTo   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordStore, err := openStore()
		if err != nil {
			return err
		}
		defer recordStore.Close()

		from, to := listFrom, listTo
		if from != "" {
			if from, err = dateparse.ParseDate(from); err != nil {
				return err
			}
		}
		if to != "" {
			if to, err = dateparse.ParseDate(to); err != nil {
				return err
			}
		}

		records, err := recordStore.List(from, to)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			output.Subtle("No sync records found")
			return nil
		}

		var total int64
		for _, rec := range records {
			fmt.Println(output.FormatRecord(rec))
			fmt.Println()
			total += rec.DurationSeconds
		}
		output.Info("%d record(s), %s total", len(records), output.FormatDuration(total))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [fingerprint...]",
	Short: "Delete sync records by fingerprint",
	Long: `Delete sync records by their full fingerprint. The entries become
eligible for submission again on the next sync.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordStore, err := openStore()
		if err != nil {
			return err
		}
		defer recordStore.Close()

		for _, fp := range args {
			deleted, err := recordStore.Delete(fp)
			if err != nil {
				return err
			}
			if !deleted {
				output.Warning("No record with fingerprint %s", output.ShortFingerprint(fp))
				continue
			}
			output.Success("Deleted %s", output.ShortFingerprint(fp))
		}
		return nil
	},
}

var clearConfirm bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all sync records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm {
			return fmt.Errorf("refusing to clear all sync records without --confirm")
		}

		recordStore, err := openStore()
		if err != nil {
			return err
		}
		defer recordStore.Close()

		n, err := recordStore.Clear()
		if err != nil {
			return err
		}
		output.Success("Cleared %d record(s)", n)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show sync record statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		recordStore, err := openStore()
		if err != nil {
			return err
		}
		defer recordStore.Close()

		records, err := recordStore.List("", "")
		if err != nil {
			return err
		}
		if len(records) == 0 {
			output.Subtle("No sync records found")
			return nil
		}

		var total int64
		issues := make(map[string]int)
		for _, rec := range records {
			total += rec.DurationSeconds
			issues[rec.IssueKey]++
		}

		output.Info("Records:   %d", len(records))
		output.Info("Issues:    %d", len(issues))
		output.Info("Total:     %s", output.FormatDuration(total))
		output.Info("First day: %s", records[0].Date)
		output.Info("Last day:  %s", records[len(records)-1].Date)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)

	listCmd.Flags().StringVar(&listFrom, "from", "", "Only records on or after this date")
	listCmd.Flags().StringVar(&listTo, "to", "", "Only records on or before this date")
	clearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "Actually delete everything")
}
