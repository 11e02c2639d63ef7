package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerline/backoffice/internal/calendar"
)

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Inspect the business calendar",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "settlement <date>",
		Short: "Compute the expected settlement date for a payment date (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettlement,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "holidays <year>",
		Short: "List the holiday set for a year",
		Args:  cobra.ExactArgs(1),
		RunE:  runHolidays,
	})

	return cmd
}

func runSettlement(_ *cobra.Command, args []string) error {
	eventDate, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", args[0], err)
	}

	settlement := calendar.ExpectedSettlement(eventDate)
	slog.Info("expected settlement",
		"event_date", eventDate.Format("2006-01-02"),
		"settlement_date", settlement.Date.Format("2006-01-02"),
		"offset_days", settlement.OffsetDays,
		"note", settlement.Note)
	return nil
}

func runHolidays(_ *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q: %w", args[0], err)
	}

	set := calendar.Holidays(year)
	days := make([]time.Time, 0, len(set))
	for day := range set {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		slog.Info("holiday", "date", day.Format("2006-01-02"), "weekday", day.Weekday().String())
	}
	return nil
}
