package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
)

// FileReport is the validation outcome of one case file.
type FileReport struct {
	Module   string
	File     string
	Cases    int
	Disabled int
	Err      error
}

// Summary totals a validation run.
type Summary struct {
	Files    int
	Cases    int
	Errors   int
	Duration time.Duration
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatFileReport prints one file's validation line, expanding the
// materialization error when the file failed.
func (f *ConsoleFormatter) FormatFileReport(r FileReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	name := r.Module + "/" + r.File

	if r.Err != nil {
		fmt.Fprintf(f.writer, "  %s %s\n", red("x"), name)
		if caseErr, ok := r.Err.(*model.CaseError); ok {
			fmt.Fprintf(f.writer, "    %s case %q", red("→"), caseErr.CaseID)
			if caseErr.Field != "" {
				fmt.Fprintf(f.writer, ", field %q", caseErr.Field)
			}
			fmt.Fprintf(f.writer, ": %s\n", caseErr.Reason)
		} else {
			fmt.Fprintf(f.writer, "    %s %v\n", red("→"), r.Err)
		}
		return
	}

	fmt.Fprintf(f.writer, "  %s %s (%d cases)", green("✓"), name, r.Cases)
	if r.Disabled > 0 {
		fmt.Fprintf(f.writer, " %s", yellow(fmt.Sprintf("(%d disabled)", r.Disabled)))
	}
	fmt.Fprintf(f.writer, "\n")
}

// FormatCases lists the materialized cases of one file, used by the
// verbose listing.
func (f *ConsoleFormatter) FormatCases(cases []model.TestCase) {
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, tc := range cases {
		marker := "-"
		if !tc.ShouldRun() {
			marker = yellow("-")
		}
		fmt.Fprintf(f.writer, "    %s %s %s %s\n", marker, tc.CaseID, cyan(string(tc.Method)), tc.URL)
		if f.verbose && tc.Detail != "" {
			fmt.Fprintf(f.writer, "      %s\n", tc.Detail)
		}
	}
}

func (f *ConsoleFormatter) FormatSummary(s Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(f.writer, "\nFiles: ")
	if s.Errors == 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d valid", s.Files-s.Errors)))
	} else {
		fmt.Fprintf(f.writer, "%s, %s, ", green(fmt.Sprintf("%d valid", s.Files-s.Errors)),
			red(fmt.Sprintf("%d invalid", s.Errors)))
	}
	fmt.Fprintf(f.writer, "%d total\n", s.Files)
	fmt.Fprintf(f.writer, "Cases: %d\n", s.Cases)
	fmt.Fprintf(f.writer, "Time:  %dms\n", s.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(project, driver string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s (driver: %s)\n", bold(project), driver)
}
