package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"signal_trader/internal/helper"
	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/ledger"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "report",
		Usage: "Read the trade ledger of the signal trader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Ledger backend (csv or postgres); defaults to the config value",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory with the CSV ledger files",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "Postgres DSN for the postgres backend",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Total trades, wins, losses, win rate and net P/L",
				Action: statsAction,
			},
			{
				Name:  "trades",
				Usage: "Most recent executed trades",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "How many trades to show",
						Value:   10,
					},
				},
				Action: tradesAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal("report: %v", err)
	}
}

func openLedger(ctx context.Context, cmd *cli.Command) (runner.Ledger, func(), error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if v := cmd.String("backend"); v != "" {
		cfg.Ledger.Backend = v
	}
	if v := cmd.String("dir"); v != "" {
		cfg.Ledger.Dir = v
	}
	if v := cmd.String("dsn"); v != "" {
		cfg.Ledger.DSN = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return ledger.Open(ctx, cfg)
}

func statsAction(ctx context.Context, cmd *cli.Command) error {
	l, closeFn, err := openLedger(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := l.Summary(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(os.Stdout, s)
	}
	printStats(os.Stdout, s)
	return nil
}

func tradesAction(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	l, closeFn, err := openLedger(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	recs, err := l.RecentTrades(ctx, limit)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(os.Stdout, recs)
	}
	return printTrades(os.Stdout, recs)
}

func printStats(w io.Writer, s models.LedgerSummary) {
	fmt.Fprintf(w, "Total trades: %d\nWins: %d\nLosses: %d\nWin rate: %.1f%%\nNet P/L: %s\n",
		s.TotalTrades, s.Wins, s.Losses, s.WinRate, helper.FormatMoney(s.NetPL))
}

func printTrades(w io.Writer, recs []models.TradeRecord) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No trades yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINSTRUMENT\tSIDE\tUNITS\tPRICE\tTP\tSL\tCONF\tORDER")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.5f\t%.5f\t%.5f\t%.0f%%\t%s\n",
			r.Timestamp.UTC().Format(time.DateTime), r.Instrument, r.Direction, r.SignedUnits,
			r.Price, r.TakeProfit, r.StopLoss, r.Confidence*100, r.OrderID)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
