package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	readnotes "github.com/opd-ai/readnotes/src"
)

var fontsJSON bool

type fontListing struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Typeface string `json:"typeface"`
	File     string `json:"file,omitempty"`
}

var fontsCmd = &cobra.Command{
	Use:   "fonts",
	Short: "List the reader fonts and available backgrounds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var fonts []fontListing
		for _, f := range readnotes.AllFonts() {
			face := f.Typeface()
			fonts = append(fonts, fontListing{ID: f.ID(), Name: f.Name(), Typeface: face.Family, File: face.File})
		}

		backgrounds, err := newCompiler(cfg.Export).Backgrounds()
		if err != nil {
			return err
		}

		if fontsJSON {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]any{
				"fonts":       fonts,
				"backgrounds": backgrounds,
			})
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPEFACE\tFILE")
		for _, f := range fonts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Typeface, f.File)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nBackgrounds: %s\n", strings.Join(backgrounds, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fontsCmd)
	fontsCmd.Flags().BoolVar(&fontsJSON, "json", false, "Output in JSON format")
}
