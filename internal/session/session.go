package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"

	"skoll/internal/config"
	"skoll/internal/exchange"
	"skoll/internal/market"
	"skoll/internal/schedule"
	"skoll/internal/trader"
)

var (
	ErrNoBuyers     = errors.New("no buyers specified")
	ErrNoSellers    = errors.New("no sellers specified")
	ErrBadBid       = errors.New("bid above limit price")
	ErrBadAsk       = errors.New("ask below limit price")
	ErrSessionStart = errors.New("not all session units started")
)

// pollInterval is the scheduling tick: the longest any unit waits
// before rechecking queues, the clock and the dying channel.
const pollInterval = 10 * time.Millisecond

// updateQueueDepth bounds each agent's batch-result queue. The
// exchange prefers blocking over dropping because a lost batch result
// would lose a Bookkeep.
const updateQueueDepth = 1024

// TypeCount is one entry of a population spec.
type TypeCount struct {
	Type string
	N    int
}

// Population names the strategies on each side of the market.
type Population struct {
	Buyers  []TypeCount
	Sellers []TypeCount
}

// PopulateMarket builds the trader map. Strategy placement is
// shuffled within each side so trader index carries no information
// about type.
func PopulateMarket(spec Population, shuffle bool, rng *rand.Rand) (map[string]trader.Agent, int, int, error) {
	side := func(counts []TypeCount, prefix string) ([]trader.Agent, error) {
		var types []string
		for _, tc := range counts {
			for i := 0; i < tc.N; i++ {
				types = append(types, tc.Type)
			}
		}
		if shuffle {
			rng.Shuffle(len(types), func(i, j int) {
				types[i], types[j] = types[j], types[i]
			})
		}
		agents := make([]trader.Agent, 0, len(types))
		for i, ttype := range types {
			ag, err := trader.New(ttype, fmt.Sprintf("%s%02d", prefix, i), 0)
			if err != nil {
				return nil, err
			}
			agents = append(agents, ag)
		}
		return agents, nil
	}

	buyers, err := side(spec.Buyers, "B")
	if err != nil {
		return nil, 0, 0, err
	}
	if len(buyers) < 1 {
		return nil, 0, 0, ErrNoBuyers
	}
	sellers, err := side(spec.Sellers, "S")
	if err != nil {
		return nil, 0, 0, err
	}
	if len(sellers) < 1 {
		return nil, 0, 0, ErrNoSellers
	}

	traders := make(map[string]trader.Agent, len(buyers)+len(sellers))
	for _, ag := range buyers {
		traders[ag.ID()] = ag
	}
	for _, ag := range sellers {
		traders[ag.ID()] = ag
	}
	return traders, len(buyers), len(sellers), nil
}

// Session is one market run: an exchange, a population of agents and
// the queues wiring them together.
type Session struct {
	id       string
	cfg      config.Config
	sched    schedule.Schedule
	exch     *exchange.Exchange
	traders  map[string]trader.Agent
	nBuyers  int
	nSellers int

	clock   *Clock
	orderQ  chan market.Order
	killQ   chan market.Order
	updates map[string]chan market.BatchResult
	start   chan struct{}
	started atomic.Int32

	rng *rand.Rand
	log zerolog.Logger
}

func New(id string, cfg config.Config, spec Population, sched schedule.Schedule, rng *rand.Rand) (*Session, error) {
	traders, nBuyers, nSellers, err := PopulateMarket(spec, true, rng)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]chan market.BatchResult, len(traders))
	for tid := range traders {
		updates[tid] = make(chan market.BatchResult, updateQueueDepth)
	}

	return &Session{
		id:       id,
		cfg:      cfg,
		sched:    sched,
		exch:     exchange.New(),
		traders:  traders,
		nBuyers:  nBuyers,
		nSellers: nSellers,
		orderQ:   make(chan market.Order, len(traders)*4),
		killQ:    make(chan market.Order, len(traders)*4),
		updates:  updates,
		start:    make(chan struct{}),
		rng:      rng,
		// Reruns of a trial share its id, so each attempt gets its
		// own run id in the logs.
		log: log.With().Str("session", id).Str("run", uuid.NewString()).Logger(),
	}, nil
}

// Traders exposes the population, for stats after the run.
func (s *Session) Traders() map[string]trader.Agent { return s.traders }

// Exchange exposes the venue, for tape dumps after the run.
func (s *Session) Exchange() *exchange.Exchange { return s.exch }

// Run drives the session to completion. The calling goroutine acts
// as the driver, releasing customer orders while the exchange and
// agent units run under the session tomb. Any unit error (a contract
// violation) kills the whole session.
func (s *Session) Run() error {
	s.clock = NewClock(s.cfg.SessionLength, s.cfg.VirtualSessionLength)

	var t tomb.Tomb
	t.Go(func() error { return s.runExchange(&t) })
	for tid := range s.traders {
		tid := tid
		t.Go(func() error { return s.runTrader(&t, tid) })
	}
	close(s.start)

	var pending []market.Order
	coid := 0
	for !s.clock.Done() && t.Alive() {
		now := s.clock.Now()
		var kills []string
		var err error
		pending, kills, coid, err = s.sched.CustomerOrders(now, coid, s.traders,
			s.nBuyers, s.nSellers, pending, s.cfg.Verbose, s.rng)
		if err != nil {
			t.Kill(err)
			break
		}
		for _, tid := range kills {
			if q, ok := s.traders[tid].LastQuote(); ok {
				select {
				case s.killQ <- q:
				case <-t.Dying():
				}
			}
		}
		time.Sleep(pollInterval)
	}

	t.Kill(nil)
	if err := t.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("session died")
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	s.log.Debug().
		Int("traders", len(s.traders)).
		Int("tape", s.exch.TapeLen()).
		Msg("session complete")
	if got := int(s.started.Load()); got != len(s.traders)+1 {
		return fmt.Errorf("%w: %d of %d", ErrSessionStart, got, len(s.traders)+1)
	}
	return nil
}

// runExchange is the exchange unit: it drains kill requests, stages
// incoming quotes and clears a batch whenever the cadence elapses,
// fanning the result out to every agent.
func (s *Session) runExchange(t *tomb.Tomb) error {
	select {
	case <-s.start:
	case <-t.Dying():
		return nil
	}
	s.started.Add(1)

	b := newBatcher()
	lastClear := 0.0

	for {
		now := s.clock.Now()

	drainKills:
		for {
			select {
			case o := <-s.killQ:
				s.exch.CancelOrder(now, o)
			default:
				break drainKills
			}
		}

		select {
		case o := <-s.orderQ:
			if b.add(o) {
				// A fresh quote supersedes the trader's resting
				// orders as well as its pending one.
				s.exch.CancelTraderOrders(now, o.TID)
			}
		case <-t.Dying():
			return nil
		case <-time.After(pollInterval):
		}

		now = s.clock.Now()
		if now-lastClear >= s.cfg.BatchInterval {
			res := s.exch.ClearBatch(now, b.take())
			for _, tr := range res.Trades {
				b.markDone(tr.Coid, tr.Counter)
			}
			for _, q := range s.updates {
				select {
				case q <- res:
				case <-t.Dying():
					return nil
				}
			}
			lastClear = now
		}
	}
}

// runTrader is one agent unit: it settles and responds to batch
// results, refreshes the agent's view of the book and forwards its
// quote after validating it against the limit price.
func (s *Session) runTrader(t *tomb.Tomb, tid string) error {
	select {
	case <-s.start:
	case <-t.Dying():
		return nil
	}
	s.started.Add(1)

	ag := s.traders[tid]
	updates := s.updates[tid]
	times := ag.Times()

	last := market.BatchResult{EqPrice: -1}

	for {
		select {
		case <-t.Dying():
			return nil
		case <-time.After(pollInterval):
		}

		now := s.clock.Now()
		timeLeft := s.clock.TimeLeft()

	drainUpdates:
		for {
			select {
			case res := <-updates:
				for _, tr := range res.Trades {
					if !tr.Involves(tid) {
						continue
					}
					if err := ag.Bookkeep(tr, s.cfg.Verbose, now); err != nil {
						return err
					}
				}
				began := time.Now()
				ag.Respond(now, res, s.cfg.Verbose)
				times[1] += time.Since(began).Seconds()
				times[3]++
				last = res
			default:
				break drainUpdates
			}
		}

		lob := s.exch.Snapshot(now)
		view := last
		view.LOB = lob

		began := time.Now()
		ag.Respond(now, view, s.cfg.Verbose)
		times[1] += time.Since(began).Seconds()
		times[3]++

		began = time.Now()
		o, ok := ag.GetOrder(now, view, timeLeft, lob)
		took := time.Since(began).Seconds()
		if !ok {
			continue
		}

		limit, has := ag.LimitFor(o.Coid)
		if !has {
			return fmt.Errorf("%w: tid=%s coid=%d", trader.ErrUnknownCustomerOrder, tid, o.Coid)
		}
		if o.Side == market.Ask && o.Price < limit {
			return fmt.Errorf("%w: %s limit=%d", ErrBadAsk, o, limit)
		}
		if o.Side == market.Bid && o.Price > limit {
			return fmt.Errorf("%w: %s limit=%d", ErrBadBid, o, limit)
		}

		ag.MarkQuote(o)
		select {
		case s.orderQ <- o:
		case <-t.Dying():
			return nil
		}
		times[0] += took
		times[2]++
	}
}
