package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Razdnut/torna-a-casa/internal/ledger"
	"github.com/Razdnut/torna-a-casa/internal/record"
	"github.com/Razdnut/torna-a-casa/internal/timeutil"
)

func dayKeyArg(args []string) (string, error) {
	if len(args) == 0 {
		return timeutil.FormatDayKey(time.Now()), nil
	}
	if !timeutil.IsValidDayKey(args[0]) {
		return "", fmt.Errorf("invalid day: %s (expected YYYY-MM-DD)", args[0])
	}
	return args[0], nil
}

func addDayFlags(cmd *cobra.Command) {
	cmd.Flags().String("morning", "", "morning entry (HH:MM)")
	cmd.Flags().String("lunch-out", "", "lunch exit (HH:MM)")
	cmd.Flags().String("lunch-in", "", "lunch return (HH:MM)")
	cmd.Flags().String("final", "", "final exit (HH:MM)")
	cmd.Flags().Bool("pause-no-exit", false, "lunch break taken without leaving the premises")
	cmd.Flags().Bool("permit", false, "a permit was used")
	cmd.Flags().String("permit-out", "", "permit exit (HH:MM)")
	cmd.Flags().String("permit-in", "", "permit return (HH:MM)")
	cmd.Flags().StringArray("segment", nil, "extra entrance/exit pair as HH:MM-HH:MM (repeatable)")
}

func inputFromFlags(cmd *cobra.Command) (ledger.Input, error) {
	var in ledger.Input
	in.MorningIn, _ = cmd.Flags().GetString("morning")
	in.LunchOut, _ = cmd.Flags().GetString("lunch-out")
	in.LunchIn, _ = cmd.Flags().GetString("lunch-in")
	in.FinalOut, _ = cmd.Flags().GetString("final")
	in.PauseNoExit, _ = cmd.Flags().GetBool("pause-no-exit")
	in.UsedPermit, _ = cmd.Flags().GetBool("permit")
	in.PermitOut, _ = cmd.Flags().GetString("permit-out")
	in.PermitIn, _ = cmd.Flags().GetString("permit-in")

	segments, _ := cmd.Flags().GetStringArray("segment")
	for _, s := range segments {
		entrance, exit, ok := strings.Cut(s, "-")
		if !ok {
			return ledger.Input{}, fmt.Errorf("invalid segment %q (expected HH:MM-HH:MM)", s)
		}
		in.Extra = append(in.Extra, ledger.Segment{Entrance: entrance, Exit: exit})
	}
	return in, nil
}

func recordFromInput(in ledger.Input, res ledger.Result) *record.DayRecord {
	return &record.DayRecord{
		MorningIn:   in.MorningIn,
		LunchOut:    in.LunchOut,
		LunchIn:     in.LunchIn,
		FinalOut:    in.FinalOut,
		PauseNoExit: in.PauseNoExit,
		UsedPermit:  in.UsedPermit,
		PermitOut:   in.PermitOut,
		PermitIn:    in.PermitIn,
		Extra:       in.Extra,
		Calculated:  &res,
		UpdatedAt:   time.Now().UTC(),
	}
}

func printResult(res ledger.Result) {
	if res.Error != "" {
		fmt.Printf("Invalid day: %s\n", res.Error)
		return
	}
	if res.Info != "" {
		fmt.Printf("Note: %s\n", res.Info)
	}
	if res.PredictedExit != "" {
		fmt.Printf("Required exit: %s\n", res.PredictedExit)
	}
	fmt.Printf("Lunch counted: %s\n", timeutil.FormatMinutes(res.LunchMinutesCounted))
	if res.PermitMinutes > 0 {
		fmt.Printf("Permit: %s\n", timeutil.FormatMinutes(res.PermitMinutes))
	}
	if res.WorkedMinutes > 0 {
		fmt.Printf("Worked (breaks excluded): %s\n", timeutil.FormatMinutes(res.WorkedMinutes))
		if res.WorkedWithPermit > res.WorkedMinutes {
			fmt.Printf("Worked incl. permit: %s\n", timeutil.FormatMinutes(res.WorkedWithPermit))
		}
		switch {
		case res.DebtMinutes > 0:
			fmt.Printf("Daily debt: %s\n", timeutil.FormatMinutes(res.DebtMinutes))
		case res.CreditMinutes > 0:
			fmt.Printf("Daily credit: %s\n", timeutil.FormatMinutes(res.CreditMinutes))
		default:
			fmt.Println("No debt, regular day!")
		}
	}
}

var setCmd = &cobra.Command{
	Use:   "set [day]",
	Short: "Record a day's timestamps and save them",
	Long: `Record the timestamps for a day (today when omitted), evaluate them
against the workplace policy and save the result. Saving replaces any
previously stored record for that day.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayKey, err := dayKeyArg(args)
		if err != nil {
			return err
		}
		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}

		res := ledger.Evaluate(in, policy)
		rec := recordFromInput(in, res)
		if err := db.SaveDay(cmd.Context(), dayKey, rec); err != nil {
			return err
		}

		fmt.Printf("Saved %s\n", dayKey)
		printResult(res)
		return nil
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Evaluate timestamps without saving",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		printResult(ledger.Evaluate(in, policy))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [day]",
	Short: "Show a saved day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayKey, err := dayKeyArg(args)
		if err != nil {
			return err
		}
		rec, err := db.LoadDay(cmd.Context(), dayKey)
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Printf("No record for %s\n", dayKey)
			return nil
		}

		fmt.Printf("%s (saved %s)\n", dayKey, humanize.Time(rec.UpdatedAt))
		fmt.Printf("  Day type: %s\n", rec.Input().Mode())
		printTimestamp("Morning entry", rec.MorningIn)
		printTimestamp("Lunch exit", rec.LunchOut)
		printTimestamp("Lunch return", rec.LunchIn)
		printTimestamp("Final exit", rec.FinalOut)
		if rec.PauseNoExit {
			fmt.Println("  Lunch break taken on premises")
		}
		if rec.UsedPermit {
			fmt.Printf("  Permit: %s - %s\n", orDash(rec.PermitOut), orDash(rec.PermitIn))
		}
		for _, seg := range rec.Extra {
			fmt.Printf("  Extra segment: %s - %s\n", seg.Entrance, seg.Exit)
		}
		if rec.Calculated != nil {
			printResult(*rec.Calculated)
		}
		return nil
	},
}

func printTimestamp(label, value string) {
	fmt.Printf("  %-14s %s\n", label+":", orDash(value))
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved days, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := db.ListDays(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No saved days")
			return nil
		}

		for _, e := range entries {
			worked := "-"
			if e.Calculated != nil && e.Calculated.WorkedMinutes > 0 {
				worked = timeutil.FormatMinutes(e.Calculated.WorkedMinutes)
			}
			fmt.Printf("%s  worked %-8s  saved %s\n", e.DayKey, worked, humanize.Time(e.UpdatedAt))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all saved days as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := db.ListDays(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported %d day(s) to %s\n", len(entries), args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved day and setting",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("This deletes all saved days and settings. Type 'yes' to confirm: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) != "yes" {
			fmt.Println("Cancelled")
			return nil
		}
		if err := db.ClearAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("All data cleared")
		return nil
	},
}

var autosaveCmd = &cobra.Command{
	Use:   "autosave [on|off]",
	Short: "Show or change the auto-save setting",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			enabled, err := db.AutoSaveEnabled(cmd.Context())
			if err != nil {
				return err
			}
			if enabled {
				fmt.Println("Auto-save is on")
			} else {
				fmt.Println("Auto-save is off")
			}
			return nil
		}

		switch args[0] {
		case "on":
			if err := db.SetAutoSaveEnabled(cmd.Context(), true); err != nil {
				return err
			}
			fmt.Println("Auto-save enabled")
		case "off":
			if err := db.SetAutoSaveEnabled(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Println("Auto-save disabled")
		default:
			return fmt.Errorf("expected 'on' or 'off', got %q", args[0])
		}
		return nil
	},
}

func init() {
	addDayFlags(setCmd)
	addDayFlags(calcCmd)
}
