package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

func newRootCmd(deps serveDeps, stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "asana-coach",
		Short:         "Real-time yoga pose coaching over websockets",
		Long:          "asana-coach serves /v1/coach: clients stream camera frames and receive spoken corrections while they work through a single pose or the Surya Namaskar routine.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.AddCommand(
		newServeCmd(deps, stderr),
		newPosesCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newServeCmd(deps serveDeps, stderr io.Writer) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coaching server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), stderr, addr, deps)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides COACH_ADDR)")
	return cmd
}

func newPosesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "poses",
		Short: "List the asanas clients can request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			routines := catalog.Routines()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(routines)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range routines {
				fmt.Fprintf(tw, "%s (%s)\n", r.Name, r.Difficulty)
				fmt.Fprintln(tw, "ID\tASANA\tPOSE")
				for _, a := range r.Asanas {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID, a.SanskritName, a.Pose)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print routines as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
