package analysis

import (
	"encoding/json"

	"github.com/royalerun/royale/internal/pricing"
	"github.com/royalerun/royale/internal/trial"
)

// usageAux is the optional shape a trial's output.aux may carry when an
// experiment's child process wants its run priced: aux.usage.{provider,
// model,input_tokens,output_tokens}. Experiments that don't report usage
// simply omit the key and contribute zero cost.
type usageAux struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// CostOf sums the dollar cost of every trial that reported a usage aux
// field, via the pricing table's per-1K-token rates. Trials with no usage
// aux, or an unrecognized provider/model pair, contribute zero.
func CostOf(trials []trial.Trial, table *pricing.Table) float64 {
	if table == nil {
		return 0
	}
	var total float64
	for _, t := range trials {
		out, _, ok := t.Status.Output()
		if !ok || out.Aux == nil {
			continue
		}
		raw, ok := out.Aux["usage"]
		if !ok {
			continue
		}
		var u usageAux
		if err := json.Unmarshal(raw, &u); err != nil {
			continue
		}
		total += table.Cost(u.Provider, u.Model, u.InputTokens, u.OutputTokens)
	}
	return total
}
