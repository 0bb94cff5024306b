package main

import (
	"fmt"
	"io"
)

const (
	progressBarLength      = 50
	progressBarSymbol      = byte('*')
	progressBarEmptySymbol = byte('-')
)

type progressBar struct {
	out            io.Writer
	currentPercent int
	progressBar    []byte // [progress]
	fillLength     int    // [*filled*-non-filled-]
}

func newProgressBar(out io.Writer) *progressBar {
	pb := &progressBar{out: out, progressBar: make([]byte, progressBarLength+2)}
	pb.progressBar[0] = '['
	pb.progressBar[progressBarLength+1] = ']'
	for i := 1; i <= progressBarLength; i++ {
		pb.progressBar[i] = progressBarEmptySymbol
	}
	return pb
}

// update matches correction.Progress.
func (pb *progressBar) update(done, total int) {
	pb.calcPercent(done, total)
	pb.updateProgressBytes()
	fmt.Fprintf(pb.out, "\r%s%d%% (%d/%d)", pb.progressBar, pb.currentPercent, done, total)
	if done >= total {
		fmt.Fprintln(pb.out)
	}
}

func (pb *progressBar) updateProgressBytes() {
	percent := progressBarLength * pb.currentPercent / 100
	for ; pb.fillLength < percent && pb.fillLength < progressBarLength; pb.fillLength++ {
		pb.progressBar[pb.fillLength+1] = progressBarSymbol
	}
}

func (pb *progressBar) calcPercent(done, total int) {
	switch {
	case total <= 0 || done >= total:
		pb.currentPercent = 100
	default:
		pb.currentPercent = done * 100 / total
	}
}
