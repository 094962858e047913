package transfer

import (
	"io"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultProgressInterval is the default sampling interval
const DefaultProgressInterval = time.Second

// negligibleETA is the remaining time below which ETA reports zero
const negligibleETA = time.Second

// defaultRateWindow is how far back the speed estimator looks
const defaultRateWindow = 5 * time.Second

// Progress is one sample of a running transfer
type Progress struct {
	Bytes   int64         `json:"bytes"`
	Total   int64         `json:"total"`
	Percent int           `json:"percent"`
	Elapsed time.Duration `json:"elapsed"`
	// ETA is zero when unknown or under a second
	ETA time.Duration `json:"eta"`
	// Rate is the smoothed throughput in bytes per second
	Rate float64 `json:"rate"`
	Done bool    `json:"done"`
}

type ProgressFunc func(Progress)

// Percent is floor(bytes/total*100) clamped to 0..100; zero when total is unknown
func Percent(bytes, total int64) int {
	if total <= 0 || bytes <= 0 {
		return 0
	}
	if bytes >= total {
		return 100
	}
	return int(bytes * 100 / total)
}

type sample struct {
	at    time.Time
	bytes int64
}

// SpeedEstimator turns cumulative byte counts into a rate averaged over a
// sliding time window.
type SpeedEstimator struct {
	window  time.Duration
	samples []sample
}

func NewSpeedEstimator(start time.Time, window time.Duration) *SpeedEstimator {
	if window <= 0 {
		window = defaultRateWindow
	}
	return &SpeedEstimator{
		window:  window,
		samples: []sample{{at: start}},
	}
}

// Add records the cumulative byte count at a point in time
func (e *SpeedEstimator) Add(at time.Time, bytes int64) {
	e.samples = append(e.samples, sample{at: at, bytes: bytes})
	// Keep the oldest sample that still spans the window.
	for len(e.samples) > 2 && at.Sub(e.samples[1].at) >= e.window {
		e.samples = e.samples[1:]
	}
}

// Rate returns bytes per second across the window
func (e *SpeedEstimator) Rate() float64 {
	if len(e.samples) < 2 {
		return 0
	}
	first, last := e.samples[0], e.samples[len(e.samples)-1]
	dt := last.at.Sub(first.at)
	if dt <= 0 {
		return 0
	}
	return float64(last.bytes-first.bytes) / dt.Seconds()
}

// ETA estimates the time to finish; zero when unknown or negligible
func (e *SpeedEstimator) ETA(bytes, total int64) time.Duration {
	rate := e.Rate()
	if total <= 0 || rate <= 0 || bytes >= total {
		return 0
	}
	eta := time.Duration(float64(total-bytes) / rate * float64(time.Second))
	if eta < negligibleETA {
		return 0
	}
	return eta
}

// ProgressStage samples the stream and reports at most once per interval,
// plus once at end of stream. Samples are taken on reads: a stalled stream
// reports nothing until the next chunk or EOF arrives.
type ProgressStage struct {
	total    int64
	interval time.Duration
	clock    clockwork.Clock
	callback ProgressFunc
}

func NewProgressStage(total int64, interval time.Duration, clock clockwork.Clock, callback ProgressFunc) *ProgressStage {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ProgressStage{total: total, interval: interval, clock: clock, callback: callback}
}

func (s *ProgressStage) Wrap(r io.Reader) io.Reader {
	now := s.clock.Now()
	return &progressReader{
		r:         r,
		stage:     s,
		start:     now,
		lastEmit:  now,
		estimator: NewSpeedEstimator(now, defaultRateWindow),
	}
}

type progressReader struct {
	r         io.Reader
	stage     *ProgressStage
	start     time.Time
	lastEmit  time.Time
	bytes     int64
	estimator *SpeedEstimator
	done      bool
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.bytes += int64(n)

	now := p.stage.clock.Now()
	switch {
	case err == io.EOF && !p.done:
		p.done = true
		p.emit(now)
	case n > 0 && now.Sub(p.lastEmit) >= p.stage.interval:
		p.emit(now)
	}
	return n, err
}

func (p *progressReader) emit(now time.Time) {
	p.lastEmit = now
	p.estimator.Add(now, p.bytes)
	p.stage.callback(Progress{
		Bytes:   p.bytes,
		Total:   p.stage.total,
		Percent: Percent(p.bytes, p.stage.total),
		Elapsed: now.Sub(p.start),
		ETA:     p.estimator.ETA(p.bytes, p.stage.total),
		Rate:    p.estimator.Rate(),
		Done:    p.done,
	})
}
