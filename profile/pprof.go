//go:build pprof

package profile

import (
	"maps"
	"slices"

	"github.com/pkg/profile"

	_ "net/http/pprof" // register HTTP handlers
)

var modes = map[string]func(*profile.Profile){
	"allocs":    profile.MemProfileAllocs,
	"block":     profile.BlockProfile,
	"clock":     profile.ClockProfile,
	"cpu":       profile.CPUProfile,
	"goroutine": profile.GoroutineProfile,
	"heap":      profile.MemProfileHeap,
	"mem":       profile.MemProfile,
	"mutex":     profile.MutexProfile,
	"thread":    profile.ThreadcreationProfile,
	"trace":     profile.TraceProfile,
}

// Modes returns the supported profiling modes, sorted.
func Modes() []string {
	return slices.Sorted(maps.Keys(modes))
}

// option adds one setting to the profiler's option list.
type option func([]func(*profile.Profile)) []func(*profile.Profile)

func withMode(m string) option {
	return func(opts []func(*profile.Profile)) []func(*profile.Profile) {
		if fn, ok := modes[m]; ok {
			opts = append(opts, fn)
		}

		return opts
	}
}

func withPath(p string) option {
	return func(opts []func(*profile.Profile)) []func(*profile.Profile) {
		if p != "" {
			opts = append(opts, profile.ProfilePath(p))
		}

		return opts
	}
}

func withQuiet(q bool) option {
	return func(opts []func(*profile.Profile)) []func(*profile.Profile) {
		if q {
			opts = append(opts, profile.Quiet)
		}

		return opts
	}
}

func start(p Profiler) interface{ Stop() } {
	if _, ok := modes[p.Mode]; !ok {
		return ignore{}
	}

	var opts []func(*profile.Profile)
	for _, o := range []option{withMode(p.Mode), withPath(p.Path), withQuiet(p.Quiet)} {
		opts = o(opts)
	}

	return profile.Start(opts...)
}
