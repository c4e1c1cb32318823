// Package analysis implements Royale's Analyzer (§4.8): it reduces a
// batch of completed trials into per-predicate statistics, and optionally
// fits a logistic regression per predicate against the sampled inputs.
package analysis

import (
	"fmt"
	"sort"

	"github.com/royalerun/royale/internal/experiment"
	"github.com/royalerun/royale/internal/trial"
)

// PredicateOutput is the base statistics block computed for every
// predicate name observed across a trial batch, per §3/§4.8.
type PredicateOutput struct {
	Name       string             `json:"name"`
	SatCount   int                `json:"sat_count"`
	ErrorCount int                `json:"error_count"`
	Count      int                `json:"count"`
	Prob       float64            `json:"prob"`
	RelError   float64            `json:"rel_error"`
	Coeffs     map[string]float64 `json:"coeffs,omitempty"`
	FitError   string             `json:"fit_error,omitempty"`
}

// AnalysisStatus is the Analyze result: the analysis kind that was run
// and one PredicateOutput per predicate name seen in the input trials.
type AnalysisStatus struct {
	Kind       string            `json:"kind"`
	Predicates []PredicateOutput `json:"predicates"`
}

const (
	KindLogisticRegression = "logistic_regression"
	KindLogregAlias        = "logreg"
)

// Analyze computes PredicateOutput base stats for every predicate name
// appearing in any trial's output (complete or error), then, for the
// logistic_regression/logreg kind, fits a per-predicate logistic
// regression over the completed trials' sampled inputs.
func Analyze(kind string, trials []trial.Trial) (AnalysisStatus, error) {
	errorCount := 0
	completed := make([]trial.Trial, 0, len(trials))
	names := map[string]struct{}{}

	for _, t := range trials {
		if _, ok := t.Status.Err(); ok {
			errorCount++
			continue
		}
		out, _, ok := t.Status.Output()
		if !ok {
			continue
		}
		completed = append(completed, t)
		for name := range out.Preds {
			names[name] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	status := AnalysisStatus{Kind: kind}
	for _, name := range sorted {
		po := baseStats(name, completed, errorCount)
		if kind == KindLogisticRegression || kind == KindLogregAlias {
			coeffs, err := fitPredicate(name, completed)
			if err != nil {
				po.FitError = err.Error()
			} else {
				po.Coeffs = coeffs
			}
		}
		status.Predicates = append(status.Predicates, po)
	}
	return status, nil
}

func baseStats(name string, completed []trial.Trial, errorCount int) PredicateOutput {
	count, satCount := 0, 0
	for _, t := range completed {
		out, _, ok := t.Status.Output()
		if !ok {
			continue
		}
		sat, present := out.Preds[name]
		if !present {
			continue
		}
		count++
		if sat {
			satCount++
		}
	}
	po := PredicateOutput{Name: name, SatCount: satCount, ErrorCount: errorCount, Count: count}
	if count > 0 {
		po.Prob = float64(satCount) / float64(count)
	}
	if denom := count + errorCount; denom > 0 {
		po.RelError = float64(errorCount) / float64(denom)
	}
	return po
}

// fitPredicate fits a logistic regression for one predicate name across
// every completed trial that has a value for it, using the numeric values
// of trial.input.sample (in stable key order) as features.
func fitPredicate(name string, completed []trial.Trial) (map[string]float64, error) {
	var featureNames []string
	var rows [][]float64
	var targets []bool

	for _, t := range completed {
		out, _, ok := t.Status.Output()
		if !ok {
			continue
		}
		sat, present := out.Preds[name]
		if !present {
			continue
		}

		sample := experiment.NewSample()
		if len(t.Input.Sample) > 0 {
			if err := sample.UnmarshalJSON(t.Input.Sample); err != nil {
				return nil, fmt.Errorf("predicate %q: decoding sample: %w", name, err)
			}
		}
		if featureNames == nil {
			featureNames = sample.Names()
		}
		row := make([]float64, len(featureNames))
		for i, fn := range featureNames {
			v, ok := sample.Get(fn)
			if !ok {
				return nil, fmt.Errorf("predicate %q: sample missing %q across trials", name, fn)
			}
			if !v.IsNumber() {
				return nil, fmt.Errorf("predicate %q: non-numeric sample value %q is not supported by logistic_regression", name, fn)
			}
			f, _ := v.Float64()
			row[i] = f
		}
		rows = append(rows, row)
		targets = append(targets, sat)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("predicate %q: no completed trials to fit", name)
	}
	weights, bias := gradientDescent(rows, targets, len(featureNames))

	coeffs := map[string]float64{"": bias}
	for i, fn := range featureNames {
		coeffs[fn] = weights[i]
	}
	return coeffs, nil
}
