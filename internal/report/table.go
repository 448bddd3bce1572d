package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Table 以控制台表格写出报告
// schedules 为 false 时省略逐块调度表
func Table(w io.Writer, rep *Module, schedules bool) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Function", "Blocks", "Loops", "Classes", "Strategy", "Accesses", "Counter", "Opposite"})
	for _, f := range rep.Functions {
		strategy, accesses, counter, opposite := "-", "-", "-", "-"
		if c := f.Compensation; c != nil {
			strategy = c.Strategy
			accesses = fmt.Sprintf("[%d, %d]", c.Min, c.Max)
			counter = strconv.Itoa(c.CounterCost)
			opposite = strconv.Itoa(c.OppositeCost)
		}
		if f.SoftFailure {
			strategy += " (soft failure)"
		}
		summary.Append([]string{
			f.Name,
			strconv.Itoa(f.Blocks),
			strconv.Itoa(f.Loops),
			strconv.Itoa(len(f.Classes)),
			strategy, accesses, counter, opposite,
		})
	}
	s := rep.Summary
	summary.SetFooter([]string{
		"Total", strconv.FormatInt(s.Functions, 10), "", "",
		fmt.Sprintf("%d none", s.NoCompensation),
		fmt.Sprintf("%d failed", s.Failed),
		strconv.FormatInt(s.Counter, 10),
		strconv.FormatInt(s.Opposite, 10),
	})
	summary.Render()

	for _, f := range rep.Functions {
		classes := tablewriter.NewWriter(w)
		classes.SetCaption(true, f.Name+": equivalence classes")
		classes.SetHeader([]string{"Class", "Root", "Blocks", "Dependencies", "Related"})
		for _, c := range f.Classes {
			rel := make([]string, len(c.Related))
			for i, id := range c.Related {
				rel[i] = strconv.Itoa(id)
			}
			classes.Append([]string{
				strconv.Itoa(c.ID),
				c.Root,
				strings.Join(c.Blocks, " "),
				strings.Join(c.Deps, " "),
				strings.Join(rel, " "),
			})
		}
		classes.Render()

		if c := f.Compensation; c != nil && len(c.Edges) > 0 {
			edges := tablewriter.NewWriter(w)
			edges.SetCaption(true, f.Name+": compensation")
			edges.SetHeader([]string{"From", "To", "Amount"})
			for _, e := range c.Edges {
				edges.Append([]string{e.From, e.To, strconv.FormatInt(e.Amount, 10)})
			}
			edges.Render()
		}

		if schedules && len(f.Schedules) > 0 {
			sched := tablewriter.NewWriter(w)
			sched.SetCaption(true, f.Name+": schedules")
			sched.SetHeader([]string{"Block", "Bundles", "No-ops"})
			for _, s := range f.Schedules {
				texts := make([]string, len(s.Bundles))
				for i, b := range s.Bundles {
					texts[i] = bundleText(b)
				}
				sched.Append([]string{s.Block, strings.Join(texts, "; "), strconv.Itoa(s.NoOps)})
			}
			sched.Render()
		}
	}

	for _, e := range rep.Errors {
		fmt.Fprintln(w, e)
	}
}
