package main

import (
	"fmt"
	"strings"

	"cot-sentiment/internal/domain"
	"cot-sentiment/internal/report"
)

func writeReport(rep *domain.RunReport, opts *options) error {
	if err := report.Write(stdout, rep, opts.output); err != nil {
		return err
	}
	if opts.coefficients && !strings.EqualFold(opts.output, report.FormatJSON) {
		fmt.Fprint(stdout, report.RenderCoefficients(rep))
	}
	return nil
}

func writeCommodities(list []domain.Commodity, format string) error {
	switch strings.ToLower(format) {
	case "", report.FormatTable:
		_, err := fmt.Fprintln(stdout, report.RenderCommodities(list))
		return err
	case report.FormatJSON:
		return report.WriteJSON(stdout, list)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
