package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Loggableim/pupcidslittletiktokhelper-sub011/internal/app/runtime"
)

var voicesJSON bool

var voicesCmd = &cobra.Command{
	Use:   "voices [engine]",
	Short: "List speech engines and their voices",
	Long: `Lists every configured speech engine, whether it can be used with the
current keys, and the voices it offers.

Examples:
  bot voices
  bot voices google
  bot voices --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
	voicesCmd.Flags().BoolVar(&voicesJSON, "json", false, "Print the catalog as JSON")
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog := runtime.NewEngineRegistry(cfg).Catalog()
	if len(args) == 1 {
		filtered := catalog[:0]
		for _, d := range catalog {
			if strings.EqualFold(d.ID, args[0]) {
				filtered = append(filtered, d)
			}
		}
		if len(filtered) == 0 {
			return fmt.Errorf("unknown engine %q", args[0])
		}
		catalog = filtered
	}

	out := cmd.OutOrStdout()
	if voicesJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, d := range catalog {
		status := "available"
		if !d.Available {
			status = "unavailable"
		}
		fmt.Fprintf(tw, "%s (%s)\t%s\tdefault %s\n", d.DisplayName, d.ID, status, d.DefaultVoice)
		for _, v := range d.Voices {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.ID, v.Lang, v.Label)
		}
	}
	return tw.Flush()
}
