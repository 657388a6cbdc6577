package analysis

// Calculator derives per-channel metrics from completed breath events.
type Calculator struct {
	metricRecoveryThreshold float64
}

// NewCalculator creates a Calculator from the engine config.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{metricRecoveryThreshold: cfg.MetricRecoveryThreshold}
}

// Compute derives metrics for a just-completed event: one BreathMetric per
// channel that recorded a peak. A channel whose frozen baseline is zero is
// skipped entirely (undefined percent rise). Optional fields stay nil when
// their inputs are absent or the elapsed time is not positive; nothing is
// ever reported as NaN or Inf.
func (c *Calculator) Compute(event *BreathEvent) []BreathMetric {
	var metrics []BreathMetric

	if event.PeakTVOC != nil {
		if m := c.channelMetric(ChannelTVOC, event, event.BaselineTVOC, *event.PeakTVOC); m != nil {
			metrics = append(metrics, *m)
		}
	}
	if event.PeakECO2 != nil {
		if m := c.channelMetric(ChannelECO2, event, event.BaselineECO2, *event.PeakECO2); m != nil {
			metrics = append(metrics, *m)
		}
	}
	return metrics
}

func (c *Calculator) channelMetric(ch Channel, event *BreathEvent, baseline, peak float64) *BreathMetric {
	if baseline == 0 {
		return nil
	}

	m := &BreathMetric{
		Channel:     ch,
		Baseline:    baseline,
		Peak:        peak,
		PercentRise: (peak - baseline) / baseline * 100,
	}

	threshold := baseline + c.metricRecoveryThreshold*baseline
	m.Threshold = &threshold

	if event.PeakTime != nil {
		ttp := event.PeakTime.Sub(event.StartTime).Seconds()
		m.TimeToPeak = &ttp

		if ttp > 0 {
			slope := (peak - baseline) / ttp
			m.Slope = &slope
		}

		if event.EndTime != nil {
			rec := event.EndTime.Sub(*event.PeakTime).Seconds()
			m.RecoveryTime = &rec
		}
	}
	return m
}
