package session

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"skoll/internal/config"
	"skoll/internal/schedule"
)

// Runner executes a series of trials with one population and
// schedule, writing one stats row per trial and appending every tape
// to the shared transactions file.
type Runner struct {
	Cfg      config.Config
	TapePath string
	StatsW   io.Writer
	Rng      *rand.Rand

	// FirstTrial numbers the first trial id; zero means 1. Sweeps
	// over many schedules use it to keep trial ids unique.
	FirstTrial int
}

// retryBackoff spaces out retries of a session that died on a
// contract violation.
const retryBackoff = 500 * time.Millisecond

// RunTrials runs Cfg.NumTrials trials. A trial whose session dies is
// retried under the same trial id; a degenerate trial (no trades at
// all) is rerun the same way. Building a session is deterministic, so
// a construction failure (a bad population) is returned rather than
// retried.
func (r *Runner) RunTrials(spec Population, sched schedule.Schedule) error {
	first := r.FirstTrial
	if first < 1 {
		first = 1
	}
	trial := first
	for trial < first+r.Cfg.NumTrials {
		trialID := fmt.Sprintf("trial%07d", trial)
		sess, err := New(trialID, r.Cfg, spec, sched, r.Rng)
		if err != nil {
			return fmt.Errorf("session %s: %w", trialID, err)
		}
		if err := sess.Run(); err != nil {
			log.Warn().Err(err).Str("trial", trialID).Msg("session discarded, retrying")
			time.Sleep(retryBackoff)
			continue
		}
		rerun, err := r.record(trialID, sess)
		if err != nil {
			return err
		}
		if rerun {
			log.Debug().Str("trial", trialID).Msg("degenerate session, rerunning")
			continue
		}
		trial++
	}
	return nil
}

func (r *Runner) record(trialID string, sess *Session) (bool, error) {
	if err := r.appendTape(sess); err != nil {
		return false, err
	}
	return TradeStats(trialID, sess.Traders(), r.StatsW)
}

func (r *Runner) appendTape(sess *Session) error {
	f, err := os.OpenFile(r.TapePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tape file: %w", err)
	}
	defer f.Close()
	return sess.Exchange().DumpTape(f, false)
}
