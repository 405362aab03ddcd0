// Command rangecheck runs integer range analysis over a textual IR file
// and reports the inferred range of every integer value. With -fold it
// additionally rewrites comparisons proven always-true and prints the
// rewritten module.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/tileir/tileir/analysis/intrange"
	"github.com/tileir/tileir/config"
	"github.com/tileir/tileir/ir"
	"github.com/tileir/tileir/ir/irparse"
)

var (
	flagConfig = flag.String("config", "", "path to a TOML configuration file")
	flagDot    = flag.String("dot", "", "write the converged lattice as Graphviz to this file")
	flagFold   = flag.Bool("fold", false, "rewrite provably-true comparisons and print the module")
	flagDebug  = flag.Bool("debug", false, "print analysis trace output")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: rangecheck [flags] file\n")
	flag.PrintDefaults()
}

func main() {
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *flagConfig != "" {
		loaded, err := config.Load(*flagConfig)
		if err != nil {
			log.Fatalf("rangecheck: %s", err)
		}
		cfg = loaded
	}

	module, err := irparse.ParseFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("rangecheck: %s", err)
	}

	opts := intrange.Options{Config: &cfg}
	if *flagDebug {
		opts.Logf = log.Printf
	}
	opts.Remark = func(op *ir.Op, msg string) {
		color.Yellow("remark: %s: %s", op.Kind, msg)
	}

	a := intrange.NewAnalysis(opts)
	a.Run(module)

	printRanges(a, module)

	if *flagDot != "" {
		if err := os.WriteFile(*flagDot, []byte(a.Solver().Dot(module)), 0666); err != nil {
			log.Fatalf("rangecheck: %s", err)
		}
	}

	if *flagFold {
		rw := ir.NewRewriter(ir.BuilderFor(module))
		n := intrange.FoldTrueCmps(module, a.Solver(), rw, opts.Remark)
		color.Green("folded %d comparison(s)", n)
		ir.Fprint(os.Stdout, module)
	}
}

func printRanges(a *intrange.Analysis, module *ir.Op) {
	bold := color.New(color.Bold)
	ir.Walk(module, func(op *ir.Op) {
		if op.Kind == ir.Func {
			bold.Printf("func @%s\n", op.Sym)
			for _, arg := range op.Region(0).Entry().Args() {
				printValueRange(a, arg)
			}
			return
		}
		for _, res := range op.Results() {
			printValueRange(a, res)
		}
	})
}

func printValueRange(a *intrange.Analysis, v ir.Value) {
	r, ok := a.ValueRange(v)
	if !ok {
		return
	}
	fmt.Printf("  %%%s: %s\n", v.Name(), r)
}
