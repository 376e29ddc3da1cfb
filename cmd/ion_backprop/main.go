/*
 *	Copyright 2025 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// ion_backprop builds a chain of pass-through operations over a parameter, runs a backward pass through it
// and checks that the gradient reaches the parameter unchanged.
//
// It's a smoke and stress test of the backward protocol for deep graphs, and it reports the time taken by
// each phase. Example:
//
//	ion_backprop -depth=1000000 -dims=16,16
//	ion_backprop -depth=5 -summary
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ionml/ion/pkg/core/autodiff"
	"github.com/ionml/ion/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagDepth    = flag.Int("depth", 10_000, "Number of operations chained between the parameter and the output.")
	flagDims     = xslices.Flag("dims", []int{4, 6}, "Comma-separated dimensions of the parameter.", strconv.Atoi)
	flagSeed     = flag.Uint64("seed", 42, "Seed used to generate the random gradient.")
	flagSummary  = flag.Bool("summary", false, "Prints a table with every variable of the graph. Use only with small depths.")
	flagProgress = flag.Bool("progress", true, "Displays a progress bar while building the graph.")
	flagTraced   = flag.Bool("traced", false, "Records the stack-trace of where each variable is created.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagDepth < 0 {
		klog.Errorf("-depth must be >= 0, got %d", *flagDepth)
		os.Exit(1)
	}
	autodiff.SetTraced(*flagTraced)

	cfg := config{
		depth:        *flagDepth,
		dims:         *flagDims,
		seed:         *flagSeed,
		showProgress: *flagProgress,
	}
	res := must.M1(run(cfg))
	fmt.Println(res.Report())
	if *flagSummary {
		fmt.Println(autodiff.Summary(res.output))
	}
}
