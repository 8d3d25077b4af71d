// Package stats collects the per stage counts of a run.
package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type Count struct {
	Name string
	N    int
}

type stage struct {
	name    string
	in, out int
	counts  []Count
}

// Summary of a run. Not safe for concurrent use.
type Summary struct {
	Feed   string
	start  time.Time
	stages []stage
}

func NewSummary(feed string) *Summary {
	return &Summary{Feed: feed, start: time.Now()}
}

// Add records a stage with the number of input and output records and
// additional counts. Counts of zero are omitted in the output.
func (s *Summary) Add(name string, in, out int, counts ...Count) {
	s.stages = append(s.stages, stage{name, in, out, counts})
}

func (s *Summary) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: finished in %s\n", s.Feed, time.Since(s.start).Round(time.Millisecond))
	for _, st := range s.stages {
		fmt.Fprintf(&b, "  %-10s %8s -> %8s", st.name, humanize.Comma(int64(st.in)), humanize.Comma(int64(st.out)))
		var details []string
		for _, c := range st.counts {
			if c.N == 0 {
				continue
			}
			details = append(details, fmt.Sprintf("%s: %s", c.Name, humanize.Comma(int64(c.N))))
		}
		if len(details) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FileSize returns a human readable size like "1.2 MB".
func FileSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
