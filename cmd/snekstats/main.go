// Command snekstats prints summaries of recorded snake sessions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brensch/snekrush/stats"
)

func main() {
	dir := flag.String("recordings", getEnvOrDefault("SNEK_RECORDINGS", "data/recordings"), "Directory of recorded session parquet files")
	limit := flag.Int("limit", 20, "Number of recent sessions to list (0 for all)")
	milestone := flag.Int("milestone", 20, "Milestone threshold used to count milestones reached")
	flag.Parse()

	db, err := stats.Open(*dir)
	if err != nil {
		log.Fatalf("open recordings: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tot, err := db.Totals(ctx, *milestone)
	if err != nil {
		log.Fatalf("totals: %v", err)
	}
	fmt.Printf("Sessions:   %d\n", tot.Sessions)
	fmt.Printf("Ticks:      %d\n", tot.Ticks)
	fmt.Printf("Best score: %d\n", tot.BestScore)
	fmt.Printf("Mean score: %.2f\n", tot.MeanScore)
	fmt.Printf("Food eaten: %d\n", tot.FoodEaten)
	fmt.Printf("Milestones: %d\n\n", tot.Milestones)

	foods, err := db.FoodBreakdown(ctx)
	if err != nil {
		log.Fatalf("food breakdown: %v", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FOOD\tEATEN")
	for _, f := range foods {
		fmt.Fprintf(tw, "%s\t%d\n", f.Name, f.Count)
	}
	tw.Flush()
	fmt.Println()

	sums, err := db.Summaries(ctx, *limit)
	if err != nil {
		log.Fatalf("summaries: %v", err)
	}
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSESSION\tSCORE\tLENGTH\tTICKS\tREASON")
	for _, s := range sums {
		reason := s.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			s.StartedAt.Format(time.DateTime), s.SessionID, s.FinalScore, s.Length, s.Ticks, reason)
	}
	tw.Flush()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
