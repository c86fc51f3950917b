package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BaSui01/agentteams/agent/validation"
	"github.com/BaSui01/agentteams/teamconfig"
)

// runValidate 离线校验团队配置文件，存在 critical 问题时返回 1
func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "json", "Output format: json or text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: agentteams validate [--format json|text] <file>")
		return 2
	}

	path := fs.Arg(0)
	fileFormat, err := teamconfig.FormatFromFilename(path)
	if err != nil {
		fmt.Fprintf(stderr, "Unsupported file: %v\n", err)
		return 2
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read %s: %v\n", path, err)
		return 2
	}
	configMap, err := teamconfig.DecodeMap(data, fileFormat)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to parse %s: %v\n", path, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := validation.NewHierarchyValidator().Validate(ctx, configMap)

	switch *format {
	case "text":
		printReport(stdout, path, report)
	default:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(stderr, "Failed to encode report: %v\n", err)
			return 2
		}
	}

	if report.CountBySeverity()[validation.SeverityCritical] > 0 {
		return 1
	}
	return 0
}

func printReport(w io.Writer, path string, report *validation.Report) {
	fmt.Fprintf(w, "%s: score %.1f\n", path, report.OverallScore)
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, issue.Location, issue.Message)
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "      -> %s\n", issue.Suggestion)
		}
	}
	if len(report.Issues) == 0 {
		fmt.Fprintln(w, "  no issues found")
	}
}
