// Package subproc composes and runs pipelines of external processes
// with shell-like redirection, without going through a shell:
//
//	var out bytes.Buffer
//	status, err := subproc.New("ps aux").
//		Chain(subproc.New("awk '{print $2}'")).
//		Chain(subproc.New("sort")).
//		CaptureOutput(&out).
//		Run()
//
// Stages are spawned in pipeline order and run concurrently; capture
// buffers are drained after every stage has spawned and before any is
// reaped. The pipeline's exit status is its final stage's status.
//
// POSIX only. There is no job control, no deadline support and no
// streaming capture: Run blocks until the pipeline finishes.
package subproc
