package frequency

import "strconv"

// Status reports how a frequency lookup ended.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusLookupFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "Found"
	case StatusNotFound:
		return "NotFound"
	default:
		return "LookupFailed"
	}
}

// NA is the textual marker for an unavailable allele frequency.
const NA = "NA"

// Result is the outcome of resolving one key. AF is meaningful only when
// Status is StatusFound.
type Result struct {
	AF     float64
	Status Status
}

// Found returns a successful result.
func Found(af float64) Result { return Result{AF: af, Status: StatusFound} }

// NotFound returns a definitive miss.
func NotFound() Result { return Result{Status: StatusNotFound} }

// Failed returns an unresolved lookup.
func Failed() Result { return Result{Status: StatusLookupFailed} }

// Available reports whether the result carries a frequency.
func (r Result) Available() bool {
	return r.Status == StatusFound
}

// FormatAF formats the frequency with four significant digits, or NA.
func (r Result) FormatAF() string {
	if !r.Available() {
		return NA
	}
	return strconv.FormatFloat(r.AF, 'g', 4, 64)
}
