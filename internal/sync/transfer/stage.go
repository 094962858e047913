package transfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Stage transforms the byte stream flowing from source to sink
type Stage interface {
	Wrap(r io.Reader) io.Reader
}

// HashStage tees every byte into an MD5 digest, the checksum Drive publishes
type HashStage struct {
	h hash.Hash
	n int64
}

func NewHashStage() *HashStage {
	return &HashStage{h: md5.New()}
}

func (s *HashStage) Wrap(r io.Reader) io.Reader {
	return io.TeeReader(r, s)
}

func (s *HashStage) Write(p []byte) (int, error) {
	s.n += int64(len(p))
	return s.h.Write(p)
}

// Sum returns the hex digest of everything read so far
func (s *HashStage) Sum() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

// Bytes returns how many bytes passed through
func (s *HashStage) Bytes() int64 {
	return s.n
}

// maxThrottleBurst bounds a single read so pacing stays smooth
const maxThrottleBurst = 32 * 1024

// ThrottleStage paces the stream to a token bucket of bytesPerSec
type ThrottleStage struct {
	ctx     context.Context
	limiter *rate.Limiter
	clock   clockwork.Clock
	burst   int
}

func NewThrottleStage(ctx context.Context, bytesPerSec int64, clock clockwork.Clock) *ThrottleStage {
	burst := int(min(bytesPerSec, maxThrottleBurst))
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ThrottleStage{
		ctx:     ctx,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		clock:   clock,
		burst:   burst,
	}
}

// Burst is the largest read forwarded without waiting
func (s *ThrottleStage) Burst() int {
	return s.burst
}

func (s *ThrottleStage) Wrap(r io.Reader) io.Reader {
	return &throttledReader{r: r, stage: s}
}

func (s *ThrottleStage) wait(n int) error {
	now := s.clock.Now()
	res := s.limiter.ReserveN(now, n)
	if !res.OK() {
		return fmt.Errorf("throttle: read of %d bytes exceeds burst %d", n, s.burst)
	}

	delay := res.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-s.ctx.Done():
		res.CancelAt(now)
		return s.ctx.Err()
	case <-s.clock.After(delay):
		return nil
	}
}

type throttledReader struct {
	r     io.Reader
	stage *ThrottleStage
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > t.stage.burst {
		p = p[:t.stage.burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.stage.wait(n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
