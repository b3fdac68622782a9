// Package edgelist reads textual edge lists: one "src dst" pair of
// non-negative integers per line.
package edgelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pjavanrood/csrbench/internal/types"
	"github.com/pjavanrood/csrbench/internal/util"
)

var log = util.New("EdgeList", util.LogLevelInfo)

// SetLogLevel adjusts the package logger.
func SetLogLevel(level util.LogLevel) { log.SetLevel(level) }

// Options controls how lines become edges.
type Options struct {
	// Symmetrize emits (v,u) right after every (u,v). A self-loop is emitted once.
	Symmetrize bool
}

// LineError describes a line that was skipped because it did not hold two vertex ids.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Stats summarizes a parse.
type Stats struct {
	Lines        int
	Edges        int
	Skipped      int
	FirstSkipped *LineError
}

// Load opens path and parses it.
func Load(path string, opts Options) ([]types.Edge, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open edge list: %w", err)
	}
	defer f.Close()

	edges, stats, err := Parse(f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read edge list %s: %w", path, err)
	}
	return edges, stats, nil
}

// MaxLineLength is the longest line Parse accepts. Longer lines are skipped.
const MaxLineLength = 1024 * 1024

// Parse reads edges from r. Malformed and oversized lines are skipped and
// counted; only I/O errors are returned.
func Parse(r io.Reader, opts Options) ([]types.Edge, Stats, error) {
	var stats Stats
	edges := make([]types.Edge, 0)

	br := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, 0, 64*1024)
	for {
		raw, tooLong, err := readLine(br, buf[:0])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		buf = raw
		stats.Lines++

		var lerr *LineError
		var edge types.Edge
		if tooLong {
			lerr = &LineError{Text: string(raw[:min(len(raw), 32)]) + "...", Reason: fmt.Sprintf("line longer than %d bytes", MaxLineLength)}
		} else {
			line := strings.TrimSpace(string(raw))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			edge, lerr = parseLine(line)
		}
		if lerr != nil {
			lerr.Line = stats.Lines
			stats.Skipped++
			if stats.FirstSkipped == nil {
				stats.FirstSkipped = lerr
			}
			log.Debugf("Skipping %v", lerr)
			continue
		}

		edges = append(edges, edge)
		if opts.Symmetrize && edge.Src != edge.Dst {
			edges = append(edges, types.Edge{Src: edge.Dst, Dst: edge.Src})
		}
	}

	stats.Edges = len(edges)
	if stats.Skipped > 0 {
		log.Warnf("Skipped %d malformed line(s), first: %v", stats.Skipped, stats.FirstSkipped)
	}
	return edges, stats, nil
}

// readLine appends the next line, without its terminator, to buf. A line
// over MaxLineLength is consumed to its end and reported as tooLong with
// only its first MaxLineLength bytes kept. io.EOF is returned only when no
// line is left.
func readLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF && len(buf) > 0 {
			return buf, tooLong, nil
		}
		if err != nil {
			return buf, tooLong, err
		}
		if room := MaxLineLength - len(buf); len(chunk) > room {
			buf = append(buf, chunk[:room]...)
			tooLong = true
		} else {
			buf = append(buf, chunk...)
		}
		if !isPrefix {
			return buf, tooLong, nil
		}
	}
}

// parseLine takes the first two fields; trailing fields are ignored.
func parseLine(line string) (types.Edge, *LineError) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return types.Edge{}, &LineError{Text: line, Reason: "expected two vertex ids"}
	}
	src, err := parseVertex(fields[0])
	if err != nil {
		return types.Edge{}, &LineError{Text: line, Reason: err.Error()}
	}
	dst, err := parseVertex(fields[1])
	if err != nil {
		return types.Edge{}, &LineError{Text: line, Reason: err.Error()}
	}
	return types.Edge{Src: src, Dst: dst}, nil
}

func parseVertex(field string) (types.VertexId, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vertex id %q", field)
	}
	if n < 0 || n > types.MaxVertexId {
		return 0, fmt.Errorf("vertex id %d out of range", n)
	}
	return types.VertexId(n), nil
}

// Write emits edges in the same format Parse reads.
func Write(w io.Writer, edges []types.Edge) error {
	bw := bufio.NewWriter(w)
	for _, e := range edges {
		if _, err := fmt.Fprintf(bw, "%d %d\n", e.Src, e.Dst); err != nil {
			return err
		}
	}
	return bw.Flush()
}
