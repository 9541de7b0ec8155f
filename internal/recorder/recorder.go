// Package recorder keeps a presentation log: the intended and actual onset
// of every stimulus, written out as CSV after the session.
package recorder

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
)

// Header is the first CSV line written by WriteCSV.
var Header = []string{"session", "sequence", "index", "label", "intended_s", "actual_s", "onset_error_ms", "timestamp", "error"}

// Row is one presented stimulus.
type Row struct {
	Sequence  string
	Index     int
	Label     string
	Intended  time.Duration
	Actual    time.Duration
	Timestamp time.Time
	Err       string
}

// OnsetError is how late the stimulus appeared relative to its schedule.
func (r Row) OnsetError() time.Duration { return r.Actual - r.Intended }

// Recorder is a v1.PresentationHook collecting rows for a session. It is
// safe to share between sequences running one after the other.
type Recorder struct {
	id   string
	mu   sync.Mutex
	rows []Row
}

var _ v1.PresentationHook = (*Recorder)(nil)

// New creates a recorder with a fresh session ID.
func New() *Recorder {
	return &Recorder{id: xid.New().String()}
}

// ID identifies the session in file names and CSV rows.
func (r *Recorder) ID() string { return r.id }

// DefaultPath is the file name used when no path is given.
func (r *Recorder) DefaultPath() string { return "stimkit_onsets_" + r.id + ".csv" }

func (r *Recorder) BeforePresent(p v1.Presentation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, Row{
		Sequence:  p.Sequence,
		Index:     p.Index,
		Label:     p.Label,
		Intended:  p.Intended,
		Actual:    p.Actual,
		Timestamp: p.Timestamp,
	})
}

func (r *Recorder) AfterPresent(p v1.Presentation, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].Sequence == p.Sequence && r.rows[i].Index == p.Index {
			r.rows[i].Err = err.Error()
			return
		}
	}
}

// Rows returns a copy of the recorded rows in presentation order.
func (r *Recorder) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.rows...)
}

// OnsetErrors returns the onset error in milliseconds of every stimulus of
// sequence, or of all sequences when sequence is empty.
func (r *Recorder) OnsetErrors(sequence string) []float64 {
	var out []float64
	for _, row := range r.Rows() {
		if sequence != "" && row.Sequence != sequence {
			continue
		}
		out = append(out, float64(row.OnsetError())/float64(time.Millisecond))
	}
	return out
}

// WriteCSV writes the header and all rows to w.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range r.Rows() {
		record := []string{
			r.id,
			row.Sequence,
			strconv.Itoa(row.Index),
			row.Label,
			strconv.FormatFloat(row.Intended.Seconds(), 'f', 6, 64),
			strconv.FormatFloat(row.Actual.Seconds(), 'f', 6, 64),
			strconv.FormatFloat(float64(row.OnsetError())/float64(time.Millisecond), 'f', 3, 64),
			row.Timestamp.Format(time.RFC3339Nano),
			row.Err,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the CSV to path, refusing to overwrite an existing file.
func (r *Recorder) Save(path string) error {
	if path == "" {
		path = r.DefaultPath()
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating presentation log %s: %w", path, err)
	}
	if err := r.WriteCSV(file); err != nil {
		file.Close()
		return fmt.Errorf("writing presentation log %s: %w", path, err)
	}
	return file.Close()
}
