// Package profile wraps [github.com/pkg/profile] so the tagtmpl command can
// capture pprof data for a single invocation.
//
// Profiling is compiled in only with the pprof build tag; otherwise
// [Profiler.Start] returns a handle whose Stop does nothing and [Modes] is
// empty.
//
//	go build -tags pprof -o tagtmpl .
//	tagtmpl --pprof-mode cpu render -f greeting.tmpl -d users.yaml
//	go tool pprof -http=: ~/.cache/tagtmpl/pprof/cpu.pprof
//
// A mode names one pkg/profile profile kind (cpu, mem, heap, allocs, block,
// mutex, goroutine, thread, clock, trace). The file is written to
// [Profiler.Path] when Stop is called.
package profile
