// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feature

import (
	"fmt"
	"io"
	"math/rand"
)

// Base codes used in encoded DNA windows.
const (
	BaseA int8 = 0
	BaseT int8 = 1
	BaseG int8 = 2
	BaseC int8 = 3

	baseN int8 = 4
)

func encodeBase(b byte) int8 {
	switch b {
	case 'A':
		return BaseA
	case 'T':
		return BaseT
	case 'G':
		return BaseG
	case 'C':
		return BaseC
	default:
		return baseN
	}
}

// DecodeWindow renders an encoded window back to a nucleotide string.
func DecodeWindow(win []int8) string {
	out := make([]byte, len(win))
	for i, code := range win {
		switch code {
		case BaseA:
			out[i] = 'A'
		case BaseT:
			out[i] = 'T'
		case BaseG:
			out[i] = 'G'
		case BaseC:
			out[i] = 'C'
		default:
			out[i] = 'N'
		}
	}
	return string(out)
}

// SeqWindows extracts encoded DNA windows of length wlen centered on each
// 1-based position (R3.2, R3.3). Overhang beyond the chromosome ends is
// treated as N, and every N is replaced by a nucleotide drawn from rnd so
// windows stay fully encoded (R3.4). A position whose two bases are not
// "CG" prints a warning to w (R3.5). The sequence must be uppercase, as
// ReadChromo returns. wlen must be odd.
func SeqWindows(seq string, pos []int, wlen int, rnd *rand.Rand, w io.Writer) ([][]int8, error) {
	if wlen%2 == 0 {
		return nil, fmt.Errorf("window length %d is not odd", wlen)
	}

	delta := wlen / 2
	wins := make([][]int8, len(pos))
	for i, p1 := range pos {
		p := p1 - 1
		if p < 0 || p+2 > len(seq) || seq[p:p+2] != "CG" {
			fmt.Fprintf(w, "warning: no CpG at position %d\n", p1)
		}

		win := make([]int8, wlen)
		for j := 0; j < wlen; j++ {
			sp := p - delta + j
			var code int8 = baseN
			if sp >= 0 && sp < len(seq) {
				code = encodeBase(seq[sp])
			}
			if code == baseN {
				code = int8(rnd.Intn(4))
			}
			win[j] = code
		}
		wins[i] = win
	}
	return wins, nil
}
