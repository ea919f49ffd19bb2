package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/operator-framework/cost-reporting/pkg/billing"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "queries the ingested billing data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var queryUndiscountedCmd = &cobra.Command{
	Use:   "undiscounted SERVICE_CODE",
	Short: "prints the undiscounted cost of a service",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(w io.Writer, store *billing.DuckDBStore, args []string) error {
		cost, err := store.UndiscountedCost(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, cost.StringFixed(2))
		return nil
	}),
}

var queryDiscountedCmd = &cobra.Command{
	Use:   "discounted SERVICE_CODE",
	Short: "prints the discounted cost of a service using the discount schedule",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(w io.Writer, store *billing.DuckDBStore, args []string) error {
		rate := store.Schedule().MultiplierFor(args[0])
		cost, err := store.DiscountedCost(args[0], rate)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, cost.StringFixed(2))
		return nil
	}),
}

var queryBlendedRateCmd = &cobra.Command{
	Use:   "blended-rate",
	Short: "prints the blended discount rate across all services",
	Args:  cobra.NoArgs,
	RunE: withStore(func(w io.Writer, store *billing.DuckDBStore, _ []string) error {
		rate, err := store.BlendedDiscountRate()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, rate.StringFixed(4))
		return nil
	}),
}

var queryAllCmd = &cobra.Command{
	Use:   "all",
	Short: "prints the undiscounted and discounted cost of every service",
	Args:  cobra.NoArgs,
	RunE: withStore(func(w io.Writer, store *billing.DuckDBStore, _ []string) error {
		costs, err := store.AllCosts()
		if err != nil {
			return err
		}
		return printCosts(w, costs)
	}),
}

func init() {
	queryCmd.AddCommand(queryUndiscountedCmd)
	queryCmd.AddCommand(queryDiscountedCmd)
	queryCmd.AddCommand(queryBlendedRateCmd)
	queryCmd.AddCommand(queryAllCmd)
}

// withStore opens the billing store for the duration of a query command.
func withStore(fn func(w io.Writer, store *billing.DuckDBStore, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		store, err := openStore(setupSignals(), logger)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd.OutOrStdout(), store, args)
	}
}

// printCosts writes costs as a table followed by a total row.
func printCosts(w io.Writer, costs []billing.ServiceCost) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE CODE\tUNDISCOUNTED\tDISCOUNTED")
	var undiscounted, discounted decimal.Decimal
	for _, c := range costs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ServiceCode, c.UndiscountedCost.StringFixed(2), c.DiscountedCost.StringFixed(2))
		undiscounted = undiscounted.Add(c.UndiscountedCost)
		discounted = discounted.Add(c.DiscountedCost)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\n", undiscounted.StringFixed(2), discounted.StringFixed(2))
	return tw.Flush()
}
