// Package health polls a liveness endpoint and reduces the responses to a
// healthy or unhealthy verdict.
package health

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ameistad/deployctl/internal/logging"
	"github.com/juju/clock"
)

// StatusUnreachable is recorded when no HTTP response was received at all.
const StatusUnreachable = 0

type Verdict struct {
	Healthy    bool
	StatusCode int
	Attempts   int
}

type Prober struct {
	client *http.Client
	clock  clock.Clock
}

// NewProber returns a Prober whose individual requests are bounded by timeout.
func NewProber(timeout time.Duration, clk clock.Clock) *Prober {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Prober{
		client: &http.Client{Timeout: timeout},
		clock:  clk,
	}
}

// Probe sleeps interval before each of up to retries GET requests against url.
// The first 200 response ends the loop. Transport errors count as unhealthy
// samples, never as errors.
func (p *Prober) Probe(ctx context.Context, url string, retries int, interval time.Duration) Verdict {
	logger := logging.Ctx(ctx)
	if retries < 1 {
		retries = 1
	}

	verdict := Verdict{StatusCode: StatusUnreachable}
	for attempt := 1; attempt <= retries; attempt++ {
		select {
		case <-ctx.Done():
			logger.Warn().Err(ctx.Err()).Int("attempt", attempt).Msg("Health probe interrupted")
			return verdict
		case <-p.clock.After(interval):
		}

		verdict.Attempts = attempt
		verdict.StatusCode = p.sample(ctx, url)
		if verdict.StatusCode == http.StatusOK {
			verdict.Healthy = true
			logger.Debug().Str("url", url).Int("attempt", attempt).Msg("Health probe succeeded")
			return verdict
		}
		logger.Info().
			Str("url", url).
			Int("status", verdict.StatusCode).
			Msgf("Health probe attempt %d/%d not healthy", attempt, retries)
	}
	return verdict
}

func (p *Prober) sample(ctx context.Context, url string) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusUnreachable
	}
	resp, err := p.client.Do(req)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("url", url).Msg("Health probe request failed")
		return StatusUnreachable
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode
}
