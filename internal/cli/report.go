package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codalotl/pydocify/internal/docubot"
	"github.com/codalotl/pydocify/internal/llmcomplete"
	"github.com/codalotl/pydocify/internal/llmmodel"
	"github.com/codalotl/pydocify/internal/updatedocs"

	"github.com/mattn/go-runewidth"
)

const reportIndent = "   "

// table prints label/value rows with the values aligned in one column. A row with an empty label is printed as a note, unaligned.
type table struct {
	rows [][2]string
}

func (t *table) add(label string, value string) {
	t.rows = append(t.rows, [2]string{label, value})
}

func (t *table) note(text string) {
	t.rows = append(t.rows, [2]string{"", text})
}

func (t *table) write(w io.Writer) {
	width := 0
	for _, r := range t.rows {
		width = max(width, runewidth.StringWidth(r[0]))
	}
	for _, r := range t.rows {
		if r[0] == "" {
			fmt.Fprintln(w, reportIndent+r[1])
			continue
		}
		fmt.Fprintln(w, reportIndent+runewidth.FillRight(r[0], width)+" "+r[1])
	}
}

func formatUSD(v float64) string {
	return fmt.Sprintf("$%.5f", v)
}

func (e *env) printEstimate(est docubot.Estimate) {
	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out, e.styles.title.Render("Estimation (Input Only):"))
	var t table
	t.add("Tokens:", e.styles.accent.Render(fmt.Sprint(est.Tokens)))
	if est.Free() {
		t.add("Est. Cost:", e.styles.free.Render("Free (Local/Ollama)"))
	} else {
		t.add("Est. Cost:", e.styles.money.Render(formatUSD(est.InputCost)))
	}
	t.write(e.out)
}

// printUsageReport prints the tokens and cost of a finished request. Free models show only output tokens.
func (e *env) printUsageReport(usage llmcomplete.Usage, provider llmmodel.ProviderID, model string) {
	cost := docubot.UsageCost(usage, string(provider), model)

	fmt.Fprintln(e.out)
	fmt.Fprintln(e.out, e.styles.title.Render("Final Usage Report:"))
	var t table
	if cost.Free {
		t.add("Output Tokens:", e.styles.accent.Render(fmt.Sprint(usage.OutputTokens)))
		t.add("Total Cost:", e.styles.free.Render("Free"))
		t.write(e.out)
		return
	}
	t.add("Input Tokens:", e.styles.accent.Render(fmt.Sprint(usage.InputTokens)))
	t.add("Output Tokens:", e.styles.accent.Render(fmt.Sprint(usage.OutputTokens)))
	if usage.ReasoningTokens > 0 {
		t.note(fmt.Sprintf("(Includes %s reasoning tokens)", e.styles.warn.Render(fmt.Sprint(usage.ReasoningTokens))))
	}
	t.add("Total Cost:", e.styles.money.Render(formatUSD(cost.Total)))
	t.write(e.out)
}

// printInjectReport summarizes what inject mode did with the model's docstrings.
func (e *env) printInjectReport(report updatedocs.Report) {
	applied := len(report.Inserted) + len(report.Replaced)
	fmt.Fprintf(e.out, "%sApplied %d docstring(s) (%d new, %d replaced)\n", reportIndent, applied, len(report.Inserted), len(report.Replaced))
	if len(report.Skipped) > 0 {
		fmt.Fprintf(e.out, "%s%s skipped one-line definitions: %s\n", reportIndent, e.styles.warn.Render("Note:"), strings.Join(report.Skipped, ", "))
	}
	if len(report.Unmatched) > 0 {
		fmt.Fprintf(e.out, "%s%s no such symbol: %s\n", reportIndent, e.styles.warn.Render("Note:"), strings.Join(report.Unmatched, ", "))
	}
}

// confirm asks a yes/no question on out and reads the answer from in. Only "y" or "yes" (any case) is a yes; end of input is a no.
func (e *env) confirm(question string) (bool, error) {
	fmt.Fprintf(e.out, "\n%s [y/n]: ", question)
	line, err := e.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(e.out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
