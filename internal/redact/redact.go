// Package redact scrubs likely secrets out of text before it reaches a log
// file; messages printed to the user are not passed through it. Hook
// scripts are arbitrary, user-supplied code;
// their captured stdout (notably get-change-id's output) should never cause
// a credential to be duplicated into git-sync-world's own logs.
package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// highEntropyPattern matches alphanumeric runs long enough to plausibly be a
// token or key.
var highEntropyPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a matched run to be
// treated as a secret. Chosen so common identifiers and words (entropy well
// under 4) pass through while API keys and tokens (entropy above 5) do not.
const entropyThreshold = 4.5

var (
	detector     *detect.Detector
	detectorOnce sync.Once
)

func getDetector() *detect.Detector {
	detectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		detector = d
	})
	return detector
}

type span struct{ start, end int }

// String returns s with likely secrets replaced by "REDACTED", combining two
// independent detectors: Shannon-entropy scoring of long alphanumeric runs,
// and gitleaks' pattern library of known secret formats. A span is redacted
// if either detector flags it.
func String(s string) string {
	var spans []span

	for _, loc := range highEntropyPattern.FindAllStringIndex(s, -1) {
		if shannonEntropy(s[loc[0]:loc[1]]) > entropyThreshold {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}

	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(s) {
			if f.Secret == "" {
				continue
			}
			from := 0
			for {
				idx := strings.Index(s[from:], f.Secret)
				if idx < 0 {
					break
				}
				abs := from + idx
				spans = append(spans, span{abs, abs + len(f.Secret)})
				from = abs + len(f.Secret)
			}
		}
	}

	if len(spans) == 0 {
		return s
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	var b strings.Builder
	prev := 0
	for _, sp := range merged {
		b.WriteString(s[prev:sp.start])
		b.WriteString("REDACTED")
		prev = sp.end
	}
	b.WriteString(s[prev:])
	return b.String()
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}
