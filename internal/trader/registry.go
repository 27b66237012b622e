package trader

import (
	"fmt"
	"sort"
)

type factory func(tid string, birth float64) Agent

var registry = map[string]factory{
	"GVWY": func(tid string, birth float64) Agent { return NewGiveaway(tid, birth) },
	"ZIC":  func(tid string, birth float64) Agent { return NewZIC(tid, birth) },
	"SHVR": func(tid string, birth float64) Agent { return NewShaver(tid, birth) },
	"SNPR": func(tid string, birth float64) Agent { return NewSniper(tid, birth) },
	"ZIP":  func(tid string, birth float64) Agent { return NewZIP(tid, birth) },
	"AA":   func(tid string, birth float64) Agent { return NewAA(tid, birth) },
	"GDX":  func(tid string, birth float64) Agent { return NewGDX(tid, birth) },
	"MTUM": func(tid string, birth float64) Agent { return NewMomentum(tid, birth) },
}

// New builds an agent of the named strategy.
func New(ttype, tid string, birth float64) (Agent, error) {
	f, ok := registry[ttype]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, ttype)
	}
	return f(tid, birth), nil
}

// Strategies lists the registered strategy names, sorted.
func Strategies() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
