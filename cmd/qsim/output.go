package main

import (
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/davecgh/go-spew/spew"
	"github.com/mattn/go-isatty"
	"github.com/theapemachine/qsim"
	"github.com/theapemachine/qsim/circuitio"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

// barWidth is the length of the histogram bar for probability 1.
const barWidth = 40

// printResult writes res in the requested format. "auto" means a table on a
// terminal and JSON otherwise.
func (a *app) printResult(w io.Writer, res *qsim.Result, format string) error {
	if a.debug {
		spew.Fdump(a.stderr, res)
	}

	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "table"
		}
	}

	switch format {
	case "table":
		_, err := fmt.Fprintln(w, resultTable(res))
		return err
	case "json", "yaml":
		return circuitio.WriteResult(w, res, format)
	}

	return fmt.Errorf("unknown output format %q", format)
}

func resultTable(res *qsim.Result) string {
	var sb strings.Builder

	title := fmt.Sprintf("%s  mode=%s  qubits=%d  seed=%d  %v", res.Name, res.Mode, res.NumQubits, res.Seed, res.Duration)
	if res.Mode == qsim.ModeSample {
		title += fmt.Sprintf("  shots=%d  fast_path=%t", res.Shots, res.FastPath)
	}
	sb.WriteString(titleStyle.Render(title) + "\n")

	switch res.Mode {
	case qsim.ModeSample:
		rows := make([][]string, 0, len(res.Counts))
		for _, key := range res.Counts.Keys() {
			n := res.Counts[key]
			p := float64(n) / float64(res.Shots)
			label := key
			if label == "" {
				label = "(none)"
			}
			rows = append(rows, []string{label, fmt.Sprint(n), fmt.Sprintf("%.4f", p), strings.Repeat("█", int(p*barWidth+0.5))})
		}
		sb.WriteString(renderTable([]string{"BITS", "COUNT", "P", ""}, rows))
	case qsim.ModeStatevector:
		rows := make([][]string, 0)
		for i, amp := range res.Statevector {
			p := real(amp)*real(amp) + imag(amp)*imag(amp)
			if p < 1e-12 {
				continue
			}
			rows = append(rows, []string{
				qsim.BasisLabel(i, res.NumQubits),
				formatComplex(amp),
				fmt.Sprintf("%.4f", p),
				fmt.Sprintf("%.3fπ", cmplx.Phase(amp)/math.Pi),
			})
		}
		sb.WriteString(renderTable([]string{"BASIS", "AMPLITUDE", "P", "PHASE"}, rows))
	case qsim.ModeUnitary:
		headers := make([]string, 0, len(res.Unitary)+1)
		headers = append(headers, "")
		for col := range res.Unitary {
			headers = append(headers, qsim.BasisLabel(col, res.NumQubits))
		}
		rows := make([][]string, len(res.Unitary))
		for r, row := range res.Unitary {
			rows[r] = append(rows[r], qsim.BasisLabel(r, res.NumQubits))
			for _, v := range row {
				rows[r] = append(rows[r], formatComplex(v))
			}
		}
		sb.WriteString(renderTable(headers, rows))
	}

	return sb.String()
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func formatComplex(v complex128) string {
	re, im := real(v), imag(v)
	if math.Abs(re) < 5e-5 {
		re = 0
	}
	if math.Abs(im) < 5e-5 {
		im = 0
	}
	return fmt.Sprintf("%.4f%+.4fi", re, im)
}
