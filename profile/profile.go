package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`

// Profiler describes one profiling session.
type Profiler struct {
	Mode  string // one of [Modes]; empty disables profiling
	Path  string // output directory; empty uses the working directory
	Quiet bool   // suppress the profiler's own log lines
}

// Start begins profiling and returns a handle that stops it. Without the
// pprof build tag, or with an empty or unknown mode, both Start and Stop do
// nothing.
func (p Profiler) Start() interface{ Stop() } {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
