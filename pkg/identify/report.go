package identify

import (
	"encoding/json"
	"fmt"
	"io"

	"c4/pkg/models"
)

// Reporter receives the results of a pass, in discovery order, from a single goroutine.
type Reporter interface {
	// Total announces the number of files about to be identified.
	Total(n int) error
	// Report receives one result.
	Report(res Result) error
}

type discard struct{}

func (discard) Total(int) error { return nil }
func (discard) Report(Result) error { return nil }

// Discard drops everything.
var Discard Reporter = discard{}

// TextReporter writes the human-readable listing:
//
//	/abs/path/to/file
//	  c4...
//
// Failures are left to the log.
type TextReporter struct {
	W io.Writer
}

func (r TextReporter) Total(n int) error {
	_, err := fmt.Fprintf(r.W, "Total file count: %d, Generating c4 ids...\n\n", n)
	return err
}

func (r TextReporter) Report(res Result) error {
	if res.Err != nil {
		return nil
	}
	_, err := fmt.Fprintf(r.W, "%s\n  %s\n", res.Entry.Path, res.ID)
	return err
}

// JSONReporter writes one models.FileID object per line, failures included.
type JSONReporter struct {
	enc *json.Encoder
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

func (r *JSONReporter) Total(int) error {
	return nil
}

func (r *JSONReporter) Report(res Result) error {
	return r.enc.Encode(FileID(res))
}

// Collector keeps every result in memory.
type Collector struct {
	Count   int
	Results []Result
}

func (c *Collector) Total(n int) error {
	c.Count = n
	return nil
}

func (c *Collector) Report(res Result) error {
	c.Results = append(c.Results, res)
	return nil
}

// FileID converts a result to its wire form.
func FileID(res Result) models.FileID {
	out := models.FileID{Path: res.Entry.Path, Size: res.Entry.Size}
	if res.Err != nil {
		out.Error = res.Err.Error()
	} else {
		out.ID = res.ID.String()
	}
	return out
}
