package common

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var ErrLineTooLong = errors.New("line too long")

// RingLineBuffer keeps the last MaxLines lines written to it. It is used as a
// log sink which can be replayed on demand.
type RingLineBuffer struct {
	// TruncateTooLongLines cuts lines longer than the maximum line length
	// instead of failing the write.
	TruncateTooLongLines bool

	maxLineLength int
	partial       []byte

	lines [][]byte
	head  int
	count int

	mutex sync.RWMutex
}

func NewRingLineBuffer(maxLines, maxLineLength uint32) *RingLineBuffer {
	return &RingLineBuffer{
		maxLineLength: int(maxLineLength),
		partial:       make([]byte, 0, maxLineLength),
		lines:         make([][]byte, maxLines),
	}
}

func (this *RingLineBuffer) Write(p []byte) (n int, err error) {
	this.mutex.Lock()
	defer this.mutex.Unlock()

	for len(p) > 0 {
		segment, rest, complete := bytes.Cut(p, []byte{'\n'})
		if space := this.maxLineLength - len(this.partial); len(segment) > space {
			if !this.TruncateTooLongLines {
				return n, ErrLineTooLong
			}
			this.partial = append(this.partial, segment[:space]...)
			this.push(this.partial)
			this.partial = this.partial[:0]
			// The truncated remainder of the line is dropped up to its end.
			n += len(segment)
			if complete {
				n++
			}
			p = rest
			continue
		}

		this.partial = append(this.partial, segment...)
		n += len(segment)
		if complete {
			n++
			this.push(this.partial)
			this.partial = this.partial[:0]
		}
		p = rest
	}

	return n, nil
}

func (this *RingLineBuffer) AddLine(line []byte) error {
	if len(line) > this.maxLineLength {
		return ErrLineTooLong
	}

	this.mutex.Lock()
	defer this.mutex.Unlock()

	this.push(line)
	return nil
}

func (this *RingLineBuffer) push(line []byte) {
	if len(this.lines) == 0 {
		return
	}
	i := (this.head + this.count) % len(this.lines)
	this.lines[i] = bytes.Clone(line)
	if this.count < len(this.lines) {
		this.count++
	} else {
		this.head = (this.head + 1) % len(this.lines)
	}
}

func (this *RingLineBuffer) NumberOfLines() uint32 {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	return uint32(this.count)
}

// Lines returns the buffered lines from oldest to newest.
func (this *RingLineBuffer) Lines() [][]byte {
	this.mutex.RLock()
	defer this.mutex.RUnlock()

	result := make([][]byte, this.count)
	for i := range result {
		result[i] = bytes.Clone(this.lines[(this.head+i)%len(this.lines)])
	}
	return result
}

func (this *RingLineBuffer) WriteTo(to io.Writer) (n int64, err error) {
	for _, line := range this.Lines() {
		wn, wErr := to.Write(append(line, '\n'))
		n += int64(wn)
		if wErr != nil {
			return n, wErr
		}
	}
	return n, nil
}
