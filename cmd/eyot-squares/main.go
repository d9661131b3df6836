// Command eyot-squares is a small host program exercising the runtime the
// way generated code does: it feeds a batch of integers through a CPU
// worker pipeline (square, then increment) and prints the results.
//
// It stands in for a compiled Eyot program, so the oracle tables below are
// what a code generator would normally emit.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ehrlich-b/go-eyot"
	"github.com/ehrlich-b/go-eyot/internal/logging"
)

// program is a hand-written stand-in for generated code
type program struct {
	count int64
}

func (p *program) ArgCount(fid int) int {
	return 0
}

func (p *program) SlotSize(fid, arg int) int {
	return 0
}

func (p *program) CallFunction(ctx *eyot.ExecutionContext, fid int, result []byte, args [][]byte) {
}

func (p *program) StringLiteral(index int) string {
	return [...]string{"squares of ", " values:"}[index]
}

func (p *program) CLSource() string {
	return ""
}

func square(ctx any, in, out, userCtx []byte) {
	v := int64(binary.LittleEndian.Uint64(in))
	binary.LittleEndian.PutUint64(out, uint64(v*v))
}

func increment(ctx any, in, out, userCtx []byte) {
	v := int64(binary.LittleEndian.Uint64(in))
	binary.LittleEndian.PutUint64(out, uint64(v+1))
}

func (p *program) Main(ctx *eyot.ExecutionContext) {
	rt := ctx.Runtime()

	ctx.PrintString(rt.StringGet(0))
	ctx.PrintInt(p.count)
	ctx.PrintString(rt.StringGet(1))
	ctx.PrintNewline()

	a := rt.NewCPUWorker(ctx, square, 8, 8, nil)
	b := rt.NewCPUWorker(ctx, increment, 8, 8, nil)
	pipeline := rt.NewPipeline(a, b)

	pipeline.Send(rt.Range(1, p.count+1, 1))

	results := pipeline.Drain()
	for i := 0; i < results.Len(); i++ {
		ctx.PrintInt(results.IntAt(i))
		ctx.PrintNewline()
	}

	a.Close()
	b.Close()
}

func main() {
	var (
		count   = flag.Int64("count", 10, "How many integers to feed through the pipeline")
		verbose = flag.Bool("v", false, "Verbose output")
		metrics = flag.Bool("metrics", false, "Print runtime metrics on exit")
	)
	flag.Parse()

	if *count <= 0 {
		log.Fatalf("invalid count %d", *count)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	p := &program{count: *count}
	options := &eyot.Options{Output: os.Stdout}

	rt := eyot.Run(p, os.Args, options)

	if *metrics {
		snap := rt.Metrics().Snapshot()
		fmt.Fprintf(os.Stderr, "pages=%d bytes=%d collections=%d worker_items=%d\n",
			snap.PagesAllocated, snap.BytesAllocated, snap.Collections, snap.WorkerItems)
	}
}
