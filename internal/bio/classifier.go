// Package bio decides whether a short profile biography describes a
// commercial venue and extracts a neighborhood hint from it.
package bio

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sells-group/placematch/internal/metrics"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/policy"
)

// signalCount is the number of independent signals a biography is scored on.
const signalCount = 6

var (
	// 〒150-0041, 1丁目2番3号, 東京都渋谷区, 埼玉県川口市. A prefecture on its
	// own is not an address.
	addressPattern = regexp.MustCompile(`〒\s?\d{3}-?\d{4}|\d+丁目|\d+番地?\d*号?|(?:東京都|北海道|(?:大阪|京都)府|\p{Han}{2,3}県)\p{Han}{1,5}[市区町村郡]`)

	// 03-1234-5678, 090-1234-5678, 0120-123-456, +81 3 1234 5678
	phonePattern = regexp.MustCompile(`(?:\+81[\s-]?\d{1,4}|0\d{1,4})[\s-]?\d{1,4}[\s-]\d{3,4}`)

	// 10:00-18:00, 11:00〜22:00, 9時〜17時
	hoursPattern = regexp.MustCompile(`\d{1,2}[:：]\d{2}\s*[-~〜～–]\s*\d{1,2}[:：]\d{2}|\d{1,2}時\s*[-~〜～]\s*\d{1,2}時`)

	urlPattern = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|\b[a-z0-9-]+\.(?:com|jp|net|co\.jp|shop|cafe)\b`)
)

// Classifier scores biographies against a vocabulary policy.
type Classifier struct {
	policy policy.BioPolicy
}

// NewClassifier creates a Classifier.
func NewClassifier(p policy.BioPolicy) *Classifier {
	if p.MinSignals <= 0 {
		p.MinSignals = policy.Default().Bio.MinSignals
	}
	return &Classifier{policy: p}
}

// Classify evaluates the six signals. IsBusiness requires at least
// MinSignals of them regardless of confidence.
func (c *Classifier) Classify(text string) model.BioSignalSet {
	lower := strings.ToLower(text)

	s := model.BioSignalSet{
		HasAddress:       addressPattern.MatchString(text) || containsAny(text, c.policy.AddressMarkers),
		HasPhone:         phonePattern.MatchString(text),
		HasHours:         hoursPattern.MatchString(text) || containsAny(lower, lowerAll(c.policy.HoursMarkers)),
		HasBusinessEmoji: containsAny(text, c.policy.Emojis),
		HasURL:           urlPattern.MatchString(text),
		HasKeyword:       containsKeyword(lower, c.policy.Keywords),
		LocationHint:     firstContained(text, c.policy.Neighborhoods),
	}

	n := s.SignalCount()
	s.Confidence = float64(n) / signalCount
	s.IsBusiness = n >= c.policy.MinSignals

	metrics.RecordBioClassification(s.IsBusiness)
	return s
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func firstContained(text string, candidates []string) string {
	for _, c := range candidates {
		if c != "" && strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

// containsKeyword matches ASCII keywords on word boundaries ("bar" does not
// match "barber") and everything else as a substring.
func containsKeyword(lower string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k == "" {
			continue
		}
		if !isASCII(k) {
			if strings.Contains(lower, k) {
				return true
			}
			continue
		}
		for i := 0; ; {
			j := strings.Index(lower[i:], k)
			if j < 0 {
				break
			}
			start, end := i+j, i+j+len(k)
			if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
				return true
			}
			i = start + 1
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b < 0x80 && (b == '_' || unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}
