package domain

// LatencyWindowSize bounds the sliding window of round-trip samples.
const LatencyWindowSize = 50

// LatencyWindow keeps the most recent one-way latency samples (ms) and
// derives the stats shown to the user. Not safe for concurrent use; the
// owning client serializes access.
type LatencyWindow struct {
	samples []float64
}

func (w *LatencyWindow) Add(ms float64) {
	w.samples = append(w.samples, ms)
	if len(w.samples) > LatencyWindowSize {
		w.samples = w.samples[1:]
	}
}

func (w *LatencyWindow) Len() int { return len(w.samples) }

// Stats summarizes the window. Jitter is the mean absolute deviation
// from the average, matching what the room UI reports.
type LatencyStats struct {
	Avg    float64
	Min    float64
	Max    float64
	Jitter float64
	Count  int
}

func (w *LatencyWindow) Stats() (LatencyStats, bool) {
	if len(w.samples) == 0 {
		return LatencyStats{}, false
	}
	st := LatencyStats{Min: w.samples[0], Max: w.samples[0], Count: len(w.samples)}
	var sum float64
	for _, v := range w.samples {
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Avg = sum / float64(len(w.samples))
	var dev float64
	for _, v := range w.samples {
		d := v - st.Avg
		if d < 0 {
			d = -d
		}
		dev += d
	}
	st.Jitter = dev / float64(len(w.samples))
	return st, true
}
