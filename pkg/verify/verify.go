// Package verify compares traversal output against reference values.
package verify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pjavanrood/csrbench/internal/config"
)

// MaxDiagnostics caps the missing and unexpected values a Report lists.
const MaxDiagnostics = 10

// Mode selects how output is compared with the reference.
type Mode int

const (
	// OrderSensitive requires equal length and equal values at every index.
	OrderSensitive Mode = iota
	// OrderInsensitive requires equal multisets.
	OrderInsensitive
)

// ParseMode maps the runner.compare config value to a Mode. Auto is
// resolved by AutoMode and is rejected here.
func ParseMode(s string) (Mode, error) {
	switch s {
	case config.CompareOrderSensitive:
		return OrderSensitive, nil
	case config.CompareOrderInsensitive:
		return OrderInsensitive, nil
	default:
		return 0, fmt.Errorf("unknown comparison mode %q", s)
	}
}

func (m Mode) String() string {
	if m == OrderInsensitive {
		return config.CompareOrderInsensitive
	}
	return config.CompareOrderSensitive
}

// AutoMode picks the comparison for an output rendering and backend kind.
// Distance output is indexed by vertex and always compared by position. A
// visitation order is only reproducible on the sequential backend.
func AutoMode(output, kind string) Mode {
	if output == "distance" || kind == config.KindSequential {
		return OrderSensitive
	}
	return OrderInsensitive
}

// Resolve turns a runner.compare value into a Mode for one backend.
func Resolve(compare, output, kind string) (Mode, error) {
	if compare == config.CompareAuto || compare == "" {
		return AutoMode(output, kind), nil
	}
	return ParseMode(compare)
}

// ------------------------------------------------------------

// Reference holds the expected output values.
type Reference struct {
	Path   string
	Values []int64
}

// LoadReference reads a reference file.
func LoadReference(path string) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference: %w", err)
	}
	defer f.Close()

	ref, err := ParseReference(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ref.Path = path
	return ref, nil
}

// ParseReference reads whitespace-separated integers. Any token that is not
// an integer is an error.
func ParseReference(r io.Reader) (*Reference, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	ref := &Reference{}
	for sc.Scan() {
		v, err := strconv.ParseInt(sc.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed reference value %d %q: %w", len(ref.Values)+1, sc.Text(), err)
		}
		ref.Values = append(ref.Values, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference: %w", err)
	}
	return ref, nil
}

// WriteReference writes one value per line.
func WriteReference(w io.Writer, values []int64) error {
	bw := bufio.NewWriter(w)
	for _, v := range values {
		bw.WriteString(strconv.FormatInt(v, 10))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ------------------------------------------------------------

// Report is the outcome of one comparison.
type Report struct {
	OK       bool
	Mode     Mode
	Expected int
	Actual   int

	// Order sensitive: first index whose values differ, -1 if none. A
	// length mismatch alone leaves it at the shorter length.
	FirstDiff int
	Want, Got int64

	// Order insensitive: values whose multiplicity is short (Missing) or in
	// excess (Unexpected), at most MaxDiagnostics each.
	Missing    []int64
	Unexpected []int64
}

// Verify compares actual with ref.
func Verify(actual []int64, ref *Reference, mode Mode) Report {
	var expected []int64
	if ref != nil {
		expected = ref.Values
	}
	rep := Report{Mode: mode, Expected: len(expected), Actual: len(actual), FirstDiff: -1}

	if mode == OrderInsensitive {
		rep.Missing, rep.Unexpected = multisetDiff(expected, actual)
		rep.OK = len(expected) == len(actual) && len(rep.Missing) == 0 && len(rep.Unexpected) == 0
		return rep
	}

	common := min(len(expected), len(actual))
	for i := 0; i < common; i++ {
		if expected[i] != actual[i] {
			rep.FirstDiff = i
			rep.Want, rep.Got = expected[i], actual[i]
			return rep
		}
	}
	if len(expected) != len(actual) {
		rep.FirstDiff = common
		return rep
	}
	rep.OK = true
	return rep
}

func multisetDiff(expected, actual []int64) (missing, unexpected []int64) {
	counts := make(map[int64]int, len(expected))
	for _, v := range expected {
		counts[v]++
	}
	for _, v := range actual {
		counts[v]--
	}
	for v, c := range counts {
		for ; c > 0; c-- {
			missing = append(missing, v)
		}
		for ; c < 0; c++ {
			unexpected = append(unexpected, v)
		}
	}
	slices.Sort(missing)
	slices.Sort(unexpected)
	return capped(missing), capped(unexpected)
}

func capped(vs []int64) []int64 {
	if len(vs) > MaxDiagnostics {
		return vs[:MaxDiagnostics]
	}
	return vs
}

func (r Report) String() string {
	if r.OK {
		return fmt.Sprintf("match (%d values, %s)", r.Actual, r.Mode)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "mismatch (%s): expected %d values, got %d", r.Mode, r.Expected, r.Actual)
	if r.Mode == OrderInsensitive {
		if len(r.Missing) > 0 {
			fmt.Fprintf(&sb, "; missing %v", r.Missing)
		}
		if len(r.Unexpected) > 0 {
			fmt.Fprintf(&sb, "; unexpected %v", r.Unexpected)
		}
		return sb.String()
	}
	if r.FirstDiff >= 0 && r.FirstDiff < min(r.Expected, r.Actual) {
		fmt.Fprintf(&sb, "; first difference at index %d: expected %d, got %d", r.FirstDiff, r.Want, r.Got)
	} else if r.FirstDiff >= 0 {
		fmt.Fprintf(&sb, "; outputs agree up to index %d", r.FirstDiff)
	}
	return sb.String()
}
