package classify

import "strings"

// minRunLength is the shortest printable-byte run StringScanner records.
const minRunLength = 3

// maxSamples caps how many interesting strings a single block contributes.
const maxSamples = 10

// StringAnalysis summarizes the printable-string content of an opaque
// FILE_DATA block.
type StringAnalysis struct {
	IsText   bool
	IsConfig bool
	IsLog    bool
	Samples  []string
}

var textExtensions = []string{".txt", ".log", ".md"}
var textLeaders = []string{"The ", "This "}

var configExtensions = []string{".conf", ".cfg", ".ini"}

var logKeywords = []string{"error", "warning", "info", "debug"}

var interestingWords = []string{
	"bin", "etc", "var", "usr", "home", "root", "tmp", "lib",
	"http://", "https://", "ftp://",
	".exe", ".dll", ".sh", ".py", ".jar", ".zip", ".tar",
}

// ScanStrings finds printable-byte runs of at least minRunLength in data
// and classifies what it found, per §4.4.4. Only the first maxSamples
// interesting runs are retained.
func ScanStrings(data []byte) StringAnalysis {
	var analysis StringAnalysis

	for _, run := range printableRuns(data) {
		lower := strings.ToLower(run)

		if containsAny(run, textExtensions) || containsAny(run, textLeaders) {
			analysis.IsText = true
		}
		if containsAny(lower, configExtensions) || strings.Contains(lower, "config") || strings.Contains(run, "=") {
			analysis.IsConfig = true
		}
		if containsAny(lower, logKeywords) || strings.Contains(run, ":") {
			analysis.IsLog = true
		}

		if len(analysis.Samples) < maxSamples && containsAny(lower, interestingWords) {
			analysis.Samples = append(analysis.Samples, run)
		}
	}

	return analysis
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// printableRuns scans data for contiguous runs of printable ASCII
// (0x20-0x7E) at least minRunLength bytes long.
func printableRuns(data []byte) []string {
	var runs []string
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minRunLength {
			runs = append(runs, string(data[start:end]))
		}
		start = -1
	}
	for i, b := range data {
		if b >= 0x20 && b <= 0x7E {
			if start < 0 {
				start = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(data))
	return runs
}
