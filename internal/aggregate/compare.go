package aggregate

// Comparison derives the deltas between a recent and a prior period for the
// same subject. Positive savings mean the recent period used or cost less.
type Comparison struct {
	Recent                   *Summary
	Prior                    *Summary
	ConsumptionChangePercent float64
	CostChangePercent        float64
	PowerChangePercent       float64
	EnergySavingsKWh         float64
	CostSavingsUSD           float64
}

// Compare computes period-over-period deltas. A nil prior yields nil: the
// comparison is entirely omitted rather than reported as zero change. A prior
// total of zero yields a zero percentage change by definition, never a
// division error.
func Compare(recent, prior *Summary) *Comparison {
	if recent == nil || prior == nil {
		return nil
	}

	c := &Comparison{
		Recent:                   recent,
		Prior:                    prior,
		ConsumptionChangePercent: percentChange(recent.TotalConsumptionKWh, prior.TotalConsumptionKWh),
		CostChangePercent:        percentChange(recent.TotalCostUSD, prior.TotalCostUSD),
		EnergySavingsKWh:         prior.TotalConsumptionKWh - recent.TotalConsumptionKWh,
		CostSavingsUSD:           prior.TotalCostUSD - recent.TotalCostUSD,
	}

	var recentPower, priorPower float64
	if recent.AveragePowerWatts != nil {
		recentPower = *recent.AveragePowerWatts
	}
	if prior.AveragePowerWatts != nil {
		priorPower = *prior.AveragePowerWatts
	}
	c.PowerChangePercent = percentChange(recentPower, priorPower)

	return c
}

func percentChange(recent, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (recent - prior) / prior * 100
}
