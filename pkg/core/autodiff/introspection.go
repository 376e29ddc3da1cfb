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

package autodiff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/ionml/ion/pkg/support/sets"
)

// Reachable returns the Variables reachable from v following the producer links backwards, in breadth-first
// order, starting with v itself. Each Variable is listed once, even if it feeds more than one operation.
//
// The walk only continues through producers implementing HasInputs: the inputs of other Functions are unknown.
func Reachable(v *Variable) []*Variable {
	if v == nil {
		return nil
	}
	visited := sets.MakeWith(v)
	queue := []*Variable{v}
	for ii := 0; ii < len(queue); ii++ {
		withInputs, ok := queue[ii].producer.(HasInputs)
		if !ok {
			continue
		}
		for _, input := range withInputs.Inputs() {
			if input == nil || !visited.Visit(input) {
				continue
			}
			queue = append(queue, input)
		}
	}
	return queue
}

// Sources returns the source Variables (see Variable.IsSource) reachable from v. See Reachable.
func Sources(v *Variable) (sources []*Variable) {
	for _, node := range Reachable(v) {
		if node.IsSource() {
			sources = append(sources, node)
		}
	}
	return
}

var (
	summaryHeaderStyle = lipgloss.NewStyle().Reverse(true).
				Padding(0, 2, 0, 2).Align(lipgloss.Center)
	summaryOddRowStyle = lipgloss.NewStyle().Faint(false).
				PaddingLeft(1).PaddingRight(1)
	summaryEvenRowStyle = lipgloss.NewStyle().Faint(true).
				PaddingLeft(1).PaddingRight(1)
)

// Summary returns a table describing the Variables reachable from v (see Reachable): name, shape, whether
// it requires a gradient, whether a gradient is stored, the producer and the memory used by the value.
func Summary(v *Variable) string {
	nodes := Reachable(v)
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				return summaryHeaderStyle
			case row%2 == 0:
				s = summaryOddRowStyle
			default:
				s = summaryEvenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		}).
		Headers("#", "Variable", "Shape", "Requires Gradient", "Gradient", "Producer", "Memory")

	var totalMemory uint64
	var numSources int
	for ii, node := range nodes {
		gradient := "-"
		if node.gradient != nil {
			gradient = node.gradient.Shape().String()
		}
		producer := "(source)"
		if node.IsSource() {
			numSources++
		} else {
			producer = FunctionTypeName(node.producer)
		}
		memory := uint64(node.value.Memory())
		totalMemory += memory
		table.Row(strconv.Itoa(ii), node.Name(), node.Shape().String(),
			strconv.FormatBool(node.requiresGradient), gradient, producer, humanize.Bytes(memory))
	}

	var sb strings.Builder
	sb.WriteString(table.Render())
	_, _ = fmt.Fprintf(&sb, "\n%s variables (%s sources), %s in values\n",
		humanize.Comma(int64(len(nodes))), humanize.Comma(int64(numSources)), humanize.Bytes(totalMemory))
	return sb.String()
}
