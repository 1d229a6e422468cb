// Package summary derives a bounded, human-readable report from a completed
// Unity batch-mode test run. It treats the NUnit results document as plain
// text and pattern-matches substrings rather than parsing it strictly, so a
// missing, truncated, or malformed document degrades to an inline notice
// instead of an error.
package summary

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Outcome carries everything a completed editor invocation produced.
type Outcome struct {
	ExitCode    int
	Stdout      string
	Stderr      string
	ResultsPath string
	LogPath     string
}

// Summary is the assembled report for one run. Text is the full rendered
// report; the remaining fields expose the extracted values for storage.
type Summary struct {
	Text     string
	ExitCode int

	Header         string   // raw <test-run …> opening tag, if found
	Total          string   // digit substrings, verbatim from the document
	Failed         string
	FailedTests    []string // names in document order
	FailureMessage string
	FailureStack   string
}

const (
	// tailLimit caps the stdout/stderr tails appended to the summary.
	tailLimit = 1000
	// grepLimit caps the number of log lines reported by the error grep.
	grepLimit = 200
)

// genericFailure is the aggregate message NUnit attaches to parent suites.
// It carries no information beyond what the failed-case list already shows.
const genericFailure = "One or more child tests had errors"

var (
	testRunRe  = regexp.MustCompile(`<test-run\b[^>]*>`)
	testCaseRe = regexp.MustCompile(`<test-case\b[^>]*>`)
	totalRe    = regexp.MustCompile(`\btotal\s*=\s*"(\d+)"`)
	failedRe   = regexp.MustCompile(`\bfailed\s*=\s*"(\d+)"`)
	resultRe   = regexp.MustCompile(`\bresult\s*=\s*"([^"]*)"`)
	nameRe     = regexp.MustCompile(`\bname\s*=\s*"([^"]*)"`)
	failureRe  = regexp.MustCompile(`(?s)<failure\b[^>]*>.*?</failure>`)
	messageRe  = regexp.MustCompile(`(?s)<message>\s*<!\[CDATA\[(.*?)\]\]>\s*</message>`)
	stackRe    = regexp.MustCompile(`(?s)<stack-trace>\s*<!\[CDATA\[(.*?)\]\]>\s*</stack-trace>`)
	lineEndRe  = regexp.MustCompile(`\r\n|\r|\n`)
)

// Summarize reads the results and log documents named by o and assembles the
// report. It never fails: an unreadable or malformed document contributes a
// notice to the report instead of an error. Byte-identical inputs against
// unchanged files yield byte-identical text.
func Summarize(o Outcome) Summary {
	s := Summary{ExitCode: o.ExitCode}
	var sections []string

	data, err := os.ReadFile(o.ResultsPath)
	if err != nil {
		sections = append(sections, "no results found: "+o.ResultsPath)
	} else {
		sections = s.extractResults(string(data), sections)
	}

	sections = append(sections, fmt.Sprintf("Log: %s\nExit code: %d", o.LogPath, o.ExitCode))

	if strings.TrimSpace(o.Stdout) != "" {
		sections = append(sections, "Editor stdout (tail):\n"+tail(o.Stdout, tailLimit))
	}
	if strings.TrimSpace(o.Stderr) != "" {
		sections = append(sections, "Editor stderr (tail):\n"+tail(o.Stderr, tailLimit))
	}

	if o.ExitCode != 0 {
		sections = append(sections, grepLog(o.LogPath))
	}

	s.Text = strings.Join(sections, "\n\n") + "\n"
	return s
}

// extractResults runs the document-driven stages: header, totals, failed
// cases, and the first meaningful failure detail. Absence of any match means
// the stage contributes nothing.
func (s *Summary) extractResults(doc string, sections []string) []string {
	if tag := testRunRe.FindString(doc); tag != "" {
		s.Header = tag
		sections = append(sections, tag)
	}

	// The totals may sit on a different <test-run> instance than the first
	// header when the document repeats run-shaped tags; take the first
	// instance carrying both attributes.
	for _, tag := range testRunRe.FindAllString(doc, -1) {
		total := totalRe.FindStringSubmatch(tag)
		failed := failedRe.FindStringSubmatch(tag)
		if total != nil && failed != nil {
			s.Total, s.Failed = total[1], failed[1]
			sections = append(sections, fmt.Sprintf("Total: %s, Failed: %s", s.Total, s.Failed))
			break
		}
	}

	for _, tag := range testCaseRe.FindAllString(doc, -1) {
		res := resultRe.FindStringSubmatch(tag)
		if res == nil || res[1] != "Failed" {
			continue
		}
		if name := nameRe.FindStringSubmatch(tag); name != nil {
			s.FailedTests = append(s.FailedTests, name[1])
		}
	}
	if len(s.FailedTests) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "Failed tests (%d):", len(s.FailedTests))
		for _, name := range s.FailedTests {
			fmt.Fprintf(&b, "\n- %s", name)
		}
		sections = append(sections, b.String())
	}

	for _, block := range failureRe.FindAllString(doc, -1) {
		m := messageRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		msg := strings.TrimSpace(m[1])
		if msg == "" || msg == genericFailure {
			continue
		}
		s.FailureMessage = msg
		section := "Failure message:\n" + msg
		if st := stackRe.FindStringSubmatch(block); st != nil {
			s.FailureStack = strings.TrimSpace(st[1])
			section += "\nStack trace:\n" + s.FailureStack
		}
		sections = append(sections, section)
		break
	}

	return sections
}

// grepLog reports every log line containing "error" (case-insensitive),
// capped to the last grepLimit matches. A failed read or an empty match set
// is reported as a notice, not an error.
func grepLog(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Log grep failed: %v", err)
	}

	var matches []string
	for _, line := range lineEndRe.Split(string(data), -1) {
		if strings.Contains(strings.ToLower(line), "error") {
			matches = append(matches, line)
		}
	}
	if len(matches) == 0 {
		return `No "error" lines in log.`
	}

	total := len(matches)
	if total > grepLimit {
		matches = matches[total-grepLimit:]
	}
	return fmt.Sprintf("Log lines containing \"error\" (%d/%d matches):\n%s",
		len(matches), total, strings.Join(matches, "\n"))
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
