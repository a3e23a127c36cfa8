package scheduler

// PerfStats is a snapshot of the rolling performance window.
type PerfStats struct {
	FPS             float64
	AvgFPS          float64
	MinFPS          float64
	MaxFPS          float64
	FrameTimeMs     float64
	AvgFrameTimeMs  float64
	MinFrameTimeMs  float64
	MaxFrameTimeMs  float64
	UpdateCount     int
	AvgUpdateCount  float64
}

// perfMonitor keeps a fixed-size rolling window of per-frame
// measurements and derives the stats the scheduler exposes.
type perfMonitor struct {
	size       int
	frameTimes []float64
	updateCnts []int
	pos        int
	filled     bool
}

func newPerfMonitor(size int) *perfMonitor {
	if size <= 0 {
		size = 60
	}
	return &perfMonitor{
		size:       size,
		frameTimes: make([]float64, size),
		updateCnts: make([]int, size),
	}
}

func (m *perfMonitor) record(frameTimeMs float64, updateCount int) {
	m.frameTimes[m.pos] = frameTimeMs
	m.updateCnts[m.pos] = updateCount
	m.pos = (m.pos + 1) % m.size
	if m.pos == 0 {
		m.filled = true
	}
}

func (m *perfMonitor) window() ([]float64, []int) {
	if m.filled {
		return m.frameTimes, m.updateCnts
	}
	return m.frameTimes[:m.pos], m.updateCnts[:m.pos]
}

func (m *perfMonitor) stats() PerfStats {
	times, counts := m.window()
	if len(times) == 0 {
		return PerfStats{}
	}

	lastIdx := len(times) - 1
	if m.filled {
		lastIdx = (m.pos - 1 + m.size) % m.size
	}
	last := times[lastIdx]
	lastFPS := fpsFor(last)

	var sum, min, max float64
	min, max = times[0], times[0]
	for _, t := range times {
		sum += t
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	avg := sum / float64(len(times))

	var countSum int
	for _, c := range counts {
		countSum += c
	}
	avgCount := float64(countSum) / float64(len(counts))

	return PerfStats{
		FPS:            lastFPS,
		AvgFPS:         fpsFor(avg),
		MinFPS:         fpsFor(max), // longest frame time => lowest fps
		MaxFPS:         fpsFor(min),
		FrameTimeMs:    last,
		AvgFrameTimeMs: avg,
		MinFrameTimeMs: min,
		MaxFrameTimeMs: max,
		UpdateCount:    counts[lastIdx],
		AvgUpdateCount: avgCount,
	}
}

func fpsFor(frameTimeMs float64) float64 {
	if frameTimeMs <= 0 {
		return 0
	}
	return 1000.0 / frameTimeMs
}
