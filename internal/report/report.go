// Package report summarizes a persisted run directory's trials into a
// per-experiment table of Royale's predicate prob/rel_error statistics,
// written as a table, markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/royalerun/royale/internal/analysis"
	"github.com/royalerun/royale/internal/pricing"
	"github.com/royalerun/royale/internal/result"
	"github.com/royalerun/royale/internal/trial"
)

// ExperimentSummary is the per-experiment row of a report.
type ExperimentSummary struct {
	Name        string                     `json:"name"`
	Trials      int                        `json:"trials"`
	Predicates  []analysis.PredicateOutput `json:"predicates"`
	MeanCostUSD float64                    `json:"mean_cost_usd,omitempty"`
}

// Generate reads every persisted trial under runDir, groups them by
// experiment name, computes base PredicateOutput statistics for each
// group, and writes the report in the requested format.
func Generate(runDir, format string, w io.Writer, pricingPath ...string) error {
	records, err := result.CollectTrialRecords(runDir)
	if err != nil {
		return err
	}

	byExperiment := map[string][]trial.Trial{}
	var order []string
	for _, rec := range records {
		if _, seen := byExperiment[rec.ExperimentName]; !seen {
			order = append(order, rec.ExperimentName)
		}
		byExperiment[rec.ExperimentName] = append(byExperiment[rec.ExperimentName], rec.Trial)
	}
	sort.Strings(order)

	var table *pricing.Table
	if len(pricingPath) > 0 && pricingPath[0] != "" {
		table, _ = pricing.Load(pricingPath[0])
	}

	summaries := make([]ExperimentSummary, 0, len(order))
	for _, name := range order {
		trials := byExperiment[name]
		status, err := analysis.Analyze("none", trials)
		if err != nil {
			return fmt.Errorf("analyzing %q: %w", name, err)
		}
		summaries = append(summaries, ExperimentSummary{
			Name:        name,
			Trials:      len(trials),
			Predicates:  status.Predicates,
			MeanCostUSD: analysis.CostOf(trials, table) / float64(max(len(trials), 1)),
		})
	}

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func writeTable(summaries []ExperimentSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPERIMENT\tTRIALS\tPREDICATE\tPROB\tREL ERROR\tMEAN COST")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		if len(s.Predicates) == 0 {
			fmt.Fprintf(tw, "%s\t%d\t-\t-\t-\t$%.4f\n", s.Name, s.Trials, s.MeanCostUSD)
			continue
		}
		for _, p := range s.Predicates {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.3f\t%.3f\t$%.4f\n",
				s.Name, s.Trials, p.Name, p.Prob, p.RelError, s.MeanCostUSD)
		}
	}
	return tw.Flush()
}

func writeMarkdown(summaries []ExperimentSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Experiment | Trials | Predicate | Prob | Rel Error | Mean Cost |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, s := range summaries {
		if len(s.Predicates) == 0 {
			fmt.Fprintf(w, "| %s | %d | - | - | - | $%.4f |\n", s.Name, s.Trials, s.MeanCostUSD)
			continue
		}
		for _, p := range s.Predicates {
			fmt.Fprintf(w, "| %s | %d | %s | %.3f | %.3f | $%.4f |\n",
				s.Name, s.Trials, p.Name, p.Prob, p.RelError, s.MeanCostUSD)
		}
	}
	return nil
}

func writeJSON(summaries []ExperimentSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
