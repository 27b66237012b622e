package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"skoll/internal/config"
	"skoll/internal/schedule"
	"skoll/internal/session"
)

// counts is a trader schedule: how many of each strategy sit on each
// side of the market.
type counts struct {
	zic, zip, gdx, aa, gvwy, shvr, mtum int
}

func (c counts) population() session.Population {
	spec := []session.TypeCount{
		{Type: "ZIC", N: c.zic},
		{Type: "ZIP", N: c.zip},
		{Type: "GDX", N: c.gdx},
		{Type: "AA", N: c.aa},
		{Type: "GVWY", N: c.gvwy},
		{Type: "SHVR", N: c.shvr},
		{Type: "MTUM", N: c.mtum},
	}
	return session.Population{Buyers: spec, Sellers: spec}
}

func (c counts) total() int {
	return 2 * (c.zic + c.zip + c.gdx + c.aa + c.gvwy + c.shvr + c.mtum)
}

func (c counts) fileName() string {
	return fmt.Sprintf("%02d-%02d-%02d-%02d-%02d-%02d-%02d.csv",
		c.zic, c.zip, c.gdx, c.aa, c.gvwy, c.shvr, c.mtum)
}

func (c counts) valid() bool {
	return c.zic >= 0 && c.zip >= 0 && c.gdx >= 0 && c.aa >= 0 &&
		c.gvwy >= 0 && c.shvr >= 0 && c.mtum >= 0
}

func usage() {
	fmt.Println("Options for running skoll:")
	fmt.Println("  $ skoll  ---  Run using trader schedule from config.")
	fmt.Println("  $ skoll <string>.csv  ---  Name of csv file describing a series of trader schedules.")
	fmt.Println("  $ skoll <int> <int> <int> <int> <int> <int> [<int>]  ---  6 or 7 integer values representing trader schedule (ZIC ZIP GDX AA GVWY SHVR [MTUM]).")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG ERROR: %v\n", err)
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	args := os.Args[1:]
	switch {
	case len(args) == 0:
		c := counts{
			zic: cfg.NumZIC, zip: cfg.NumZIP, gdx: cfg.NumGDX, aa: cfg.NumAA,
			gvwy: cfg.NumGVWY, shvr: cfg.NumSHVR, mtum: cfg.NumMTUM,
		}
		if err := runSingle(cfg, c); err != nil {
			log.Fatal().Err(err).Msg("run failed")
		}
	case len(args) == 1 && !isInt(args[0]):
		if err := runCSV(cfg, args[0]); err != nil {
			log.Fatal().Err(err).Msg("run failed")
		}
	case len(args) == 6 || len(args) == 7:
		c, err := parseCounts(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR: Invalid trader schedule. Please enter integer values.")
			os.Exit(1)
		}
		if !c.valid() {
			fmt.Fprintln(os.Stderr, "ERROR: Invalid trader schedule. All input integers should be positive.")
			os.Exit(1)
		}
		if err := runSingle(cfg, c); err != nil {
			log.Fatal().Err(err).Msg("run failed")
		}
	default:
		fmt.Fprintln(os.Stderr, "Invalid input arguments.")
		usage()
		os.Exit(1)
	}
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func parseCounts(args []string) (counts, error) {
	vals := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return counts{}, err
		}
		vals[i] = v
	}
	c := counts{
		zic: vals[0], zip: vals[1], gdx: vals[2],
		aa: vals[3], gvwy: vals[4], shvr: vals[5],
	}
	if len(vals) == 7 {
		c.mtum = vals[6]
	}
	return c, nil
}

// runSingle runs the configured number of trials for one trader
// schedule, writing stats rows next to the binary.
func runSingle(cfg config.Config, c counts) error {
	if c.total() > 40 {
		log.Warn().Msg("too many traders can cause unstable behaviour")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sched, err := schedule.New(cfg, rng)
	if err != nil {
		return err
	}

	f, err := os.Create(c.fileName())
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	runner := &session.Runner{Cfg: cfg, TapePath: cfg.TapeFile, StatsW: w, Rng: rng}
	return runner.RunTrials(c.population(), sched)
}

// runCSV sweeps a series of trader schedules from a csv file: one row
// of six counts per schedule, several fresh order schedules per row.
// Malformed rows are skipped.
func runCSV(cfg config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ERROR: File %s not found", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	trialNumber := 1

	for _, row := range rows {
		c, err := parseRatioRow(row)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR: Invalid trader schedule. Please enter six, comma-separated, integer values. Skipping this trader schedule.")
			continue
		}
		if !c.valid() {
			fmt.Fprintln(os.Stderr, "ERROR: Invalid trader schedule. All input integers should be positive. Skipping this trader schedule.")
			continue
		}
		if c.total() > 40 {
			log.Warn().Msg("too many traders can cause unstable behaviour")
		}

		out, err := os.Create(filepath.Join(cfg.ResultsDir, c.fileName()))
		if err != nil {
			return err
		}
		w := bufio.NewWriter(out)

		schedCfg := cfg
		schedCfg.NumTrials = cfg.NumTrialsPerSchedule
		for i := 0; i < cfg.NumSchedulesPerRatio; i++ {
			sched, err := schedule.New(cfg, rng)
			if err != nil {
				w.Flush()
				out.Close()
				return err
			}
			runner := &session.Runner{
				Cfg:        schedCfg,
				TapePath:   cfg.TapeFile,
				StatsW:     w,
				Rng:        rng,
				FirstTrial: trialNumber,
			}
			if err := runner.RunTrials(c.population(), sched); err != nil {
				w.Flush()
				out.Close()
				return err
			}
			trialNumber += cfg.NumTrialsPerSchedule
		}

		w.Flush()
		out.Close()
	}
	return nil
}

func parseRatioRow(row []string) (counts, error) {
	if len(row) < 6 {
		return counts{}, fmt.Errorf("short row")
	}
	vals := make([]int, 6)
	for i := 0; i < 6; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			return counts{}, err
		}
		vals[i] = v
	}
	return counts{
		zic: vals[0], zip: vals[1], gdx: vals[2],
		aa: vals[3], gvwy: vals[4], shvr: vals[5],
	}, nil
}
