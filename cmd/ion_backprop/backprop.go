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

package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/ionml/ion/pkg/core/autodiff"
	"github.com/ionml/ion/pkg/core/autodiff/autodifftest"
	"github.com/ionml/ion/pkg/core/shapes"
	"github.com/ionml/ion/pkg/core/tensors"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

type config struct {
	depth        int
	dims         []int
	seed         uint64
	showProgress bool

	// progressWriter is where the progress bar is written to, defaults to os.Stderr.
	progressWriter io.Writer
}

// result of a run.
type result struct {
	cfg            config
	source, output *autodiff.Variable
	buildTime      time.Duration
	backwardTime   time.Duration
	memory         uint64
}

// run builds the chain, runs the backward pass and verifies the gradient stored in the source.
func run(cfg config) (*result, error) {
	for _, dim := range cfg.dims {
		if dim < 0 {
			return nil, errors.Errorf("invalid dimensions %v", cfg.dims)
		}
	}
	res := &result{cfg: cfg}
	res.source = autodiff.Parameter(tensors.FromShape(shapes.Make(dtypes.Float64, cfg.dims...))).SetName("parameter")

	var progress func()
	if cfg.showProgress && cfg.depth > 0 {
		writer := cfg.progressWriter
		if writer == nil {
			writer = os.Stderr
		}
		bar := progressbar.NewOptions(cfg.depth,
			progressbar.OptionSetDescription("Building graph: "),
			progressbar.OptionSetWriter(writer),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("ops"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(writer) }),
		)
		progress = func() { _ = bar.Add(1) }
		term := termenv.NewOutput(writer)
		term.HideCursor()
		defer term.ShowCursor()
	}

	start := time.Now()
	var ops []*autodifftest.Identity
	res.output, ops = autodifftest.BuildChain(res.source, cfg.depth, progress)
	res.buildTime = time.Since(start)
	res.output.SetName("output")
	klog.V(1).Infof("built chain of %d operations in %s", len(ops), res.buildTime)

	rng := rand.New(rand.NewPCG(cfg.seed, 0))
	gradient := autodifftest.RandomTensor(rng, cfg.dims...)
	start = time.Now()
	if err := res.output.CheckedBackward(gradient); err != nil {
		return nil, err
	}
	res.backwardTime = time.Since(start)

	if res.source.Gradient() == nil || !gradient.Equal(res.source.Gradient()) {
		return nil, errors.Errorf("gradient stored in %s differs from the one given to %s", res.source, res.output)
	}
	for ii, op := range ops {
		if op.BackwardCalls != 1 {
			return nil, errors.Errorf("operation #%d was called %d times during the backward pass, wanted 1", ii, op.BackwardCalls)
		}
	}
	res.memory = uint64(res.source.Value().Memory()) * uint64(cfg.depth+1)
	return res, nil
}

// Report returns a human-readable description of the run.
func (res *result) Report() string {
	var sb strings.Builder
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&sb, format, args...) }
	w("parameter:      %s\n", res.source.Shape())
	w("operations:     %s\n", humanize.Comma(int64(res.cfg.depth)))
	w("values memory:  %s\n", humanize.Bytes(res.memory))
	w("build time:     %s\n", res.buildTime)
	w("backward time:  %s\n", res.backwardTime)
	w("gradient:       ok")
	return sb.String()
}
