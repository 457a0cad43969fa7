// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/datalog"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/process"
	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

const usage = `usage:
  zero-datalog convert <file> [output]
  zero-datalog stats <file> [column...]
`

var errUsage = errors.New("missing command or file (see --help)")

func run(args []string, stdout io.Writer) error {
	var showVersion bool
	flagSet := pflag.NewFlagSet("zero-datalog", pflag.ContinueOnError)
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Fprint(stdout, "zero-datalog")
		return nil
	}

	args = flagSet.Args()
	if len(args) < 2 {
		return errUsage
	}
	switch command, rest := args[0], args[1:]; command {
	case "convert":
		if len(rest) > 2 {
			return fmt.Errorf("convert: unexpected argument: %s", rest[2])
		}
		output := ""
		if len(rest) == 2 {
			output = rest[1]
		}
		return convert(rest[0], output, stdout)
	case "stats":
		return stats(rest[0], rest[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// convertedName strips a known compression suffix. A name without one
// gets ".txt" appended so the input is never overwritten.
func convertedName(input string) string {
	for _, c := range []datalog.Compression{datalog.Gzip, datalog.Zstd, datalog.LZ4} {
		if trimmed, ok := strings.CutSuffix(input, c.Extension()); ok {
			return trimmed
		}
	}
	return input + ".txt"
}

func convert(input, output string, stdout io.Writer) (err error) {
	reader, err := datalog.Open(input)
	if err != nil {
		return err
	}
	defer reader.Close()

	var w io.Writer = stdout
	if output != "-" {
		if output == "" {
			output = convertedName(input)
		}
		if filepath.Clean(output) == filepath.Clean(input) {
			return fmt.Errorf("refusing to overwrite %s", input)
		}
		file, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
		}()
		w = file
	}

	written, err := io.Copy(w, reader)
	if err != nil {
		return fmt.Errorf("convert %s: %w", input, err)
	}
	if output != "-" {
		fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", output, written)
	}
	return nil
}

func stats(input string, columns []string, stdout io.Writer) error {
	reader, err := datalog.Open(input)
	if err != nil {
		return err
	}
	defer reader.Close()
	summary, err := datalog.Summarize(reader)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	selected := summary.Columns
	if len(columns) > 0 {
		selected = selected[:0:0]
		for _, name := range columns {
			i := slices.IndexFunc(summary.Columns, func(c datalog.ColumnStats) bool {
				return c.Name == name || strings.HasPrefix(c.Name, name+" (")
			})
			if i < 0 {
				return fmt.Errorf("%s has no column %q", input, name)
			}
			selected = append(selected, summary.Columns[i])
		}
	}

	fmt.Fprintf(stdout, "%s: %d rows", input, summary.Rows)
	if summary.Malformed > 0 {
		fmt.Fprintf(stdout, ", %d malformed", summary.Malformed)
	}
	fmt.Fprintln(stdout)

	writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "COLUMN\tCOUNT\tMIN\tMEAN\tMAX\tRATE (Hz)\tMAX GAP (s)")
	for _, c := range selected {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.Count, number(c.Min), number(c.Mean), number(c.Max), number(c.Frequency()), number(c.MaxInterval))
	}
	return writer.Flush()
}

func number(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}
