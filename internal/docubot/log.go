package docubot

import (
	"strings"

	"github.com/codalotl/pydocify/internal/updatedocs"
)

// logReport logs what the injector did with the model's docstrings. Skipped and unmatched symbols are the interesting part: the model named something that isn't in
// the file, or a symbol's layout (ex: "def f(): pass") can't take a docstring without reformatting.
func logReport(options Options, report updatedocs.Report) {
	if options.Logger == nil {
		return
	}
	options.log("docstrings applied",
		"inserted", strings.Join(report.Inserted, ","),
		"replaced", strings.Join(report.Replaced, ","),
	)
	if len(report.Skipped) > 0 {
		options.log("docstrings skipped", "symbols", strings.Join(report.Skipped, ","))
	}
	if len(report.Unmatched) > 0 {
		options.log("docstrings unmatched", "keys", strings.Join(report.Unmatched, ","))
	}
	if report.ParseErr != nil {
		options.Logger.Error("source could not be parsed; returned unchanged", "err", report.ParseErr)
	}
}
