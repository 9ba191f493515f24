package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/hyperjump/trisearch/internal/models"
)

const (
	// Prompt is printed before every query line.
	Prompt = "Search DB: "
	// ExitCommand ends the loop.
	ExitCommand = "exit"
)

// REPL reads one query per line and prints the ranked products until "exit" or end of input.
type REPL struct {
	searcher Searcher
	in       io.Reader
	out      io.Writer
	format   SearchOutputFormat
	limit    int
	logger   *zap.Logger
}

// REPLOption configures a REPL.
type REPLOption func(*REPL)

// WithFormat sets the result format (default OutputText).
func WithFormat(f SearchOutputFormat) REPLOption {
	return func(r *REPL) { r.format = f }
}

// WithLimit sets the number of results per query (0 = server/engine default).
func WithLimit(n int) REPLOption {
	return func(r *REPL) { r.limit = n }
}

// WithLogger sets a logger for failed queries.
func WithLogger(l *zap.Logger) REPLOption {
	return func(r *REPL) { r.logger = l }
}

// NewREPL creates an interactive loop reading from in and writing to out.
func NewREPL(searcher Searcher, in io.Reader, out io.Writer, opts ...REPLOption) *REPL {
	r := &REPL{
		searcher: searcher,
		in:       in,
		out:      out,
		format:   OutputText,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes queries until a line reading exactly "exit", end of input, or ctx cancellation.
// Every other line, blank ones included, is searched verbatim.
// A failed query is reported and the loop continues; only read errors and cancellation end it early.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	scanner.Split(scanQueryLines)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.out, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := scanner.Text()
		if line == ExitCommand {
			return nil
		}
		r.handle(ctx, line)
	}
}

// scanQueryLines splits on '\n' only. Unlike bufio.ScanLines it keeps a trailing '\r',
// which the tokenizer treats as an ordinary character.
func scanQueryLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (r *REPL) handle(ctx context.Context, line string) {
	response, err := r.searcher.Search(ctx, &models.SearchQuery{Query: line, Limit: r.limit})
	if err != nil {
		r.logger.Warn("search failed", zap.String("query", line), zap.Error(err))
		fmt.Fprintf(r.out, "search failed: %v\n", err)
		return
	}
	if err := WriteSearchResults(r.out, response, r.format); err != nil {
		r.logger.Warn("write results failed", zap.Error(err))
	}
}
