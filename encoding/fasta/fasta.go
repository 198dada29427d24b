// Package fasta reads and writes FASTA files. FASTA files consist of a number
// of named sequences that may be interrupted by newlines.  For example:
//
// >seq_1
// ACGTAC
// GAGGAC
// >seq_2
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxLineLength = 64 << 20

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns the named sequence.
	Get(seqName string) (string, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory. An empty input yields an empty Fasta.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLength)
	var (
		seqName string
		inSeq   bool
		seq     strings.Builder
	)
	flush := func() {
		if inSeq {
			f.seqs[seqName] = seq.String()
			f.seqNames = append(f.seqNames, seqName)
			seq.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			seqName = strings.Split(line[1:], " ")[0]
			inSeq = true
			continue
		}
		if !inSeq {
			return nil, errors.Errorf("malformed FASTA file: sequence before header")
		}
		seq.WriteString(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	flush()
	return f, nil
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	return s, nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}

// Writer writes FASTA records. Sequences are written on a single line unless
// Width is positive.
type Writer struct {
	// Width wraps sequence lines at this many bases when > 0.
	Width int

	w   *bufio.Writer
	err error
}

// NewWriter creates a Writer on top of w. Flush must be called once all
// records are written.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(name, seq string) error {
	if w.err != nil {
		return w.err
	}
	w.writeString(">")
	w.writeString(name)
	w.writeString("\n")
	if w.Width <= 0 {
		w.writeString(seq)
		w.writeString("\n")
		return w.err
	}
	for len(seq) > 0 {
		n := w.Width
		if n > len(seq) {
			n = len(seq)
		}
		w.writeString(seq[:n])
		w.writeString("\n")
		seq = seq[n:]
	}
	return w.err
}

// Flush flushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return errors.Wrap(w.w.Flush(), "fasta flush")
}

func (w *Writer) writeString(s string) {
	if w.err == nil {
		_, w.err = w.w.WriteString(s)
	}
}
