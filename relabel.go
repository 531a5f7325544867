package consensus

// Relabel returns part with its cluster labels renamed to best agree
// with ref, without changing part's grouping structure. Agreement is
// maximised greedily on the part-versus-ref contingency table: the
// highest-overlap (part label, ref label) pair is matched first, then
// the highest among the remaining labels, until either side runs out
// or no overlap is left. Ties prefer the lowest part label, then the
// lowest ref label. Labels left unmatched keep their original values,
// and Missing entries pass through untouched.
//
// Pairs where either vector is Missing contribute nothing to the
// contingency table.
func Relabel(part, ref []int) ([]int, error) {
	if len(part) != len(ref) {
		return nil, ShapeError{Op: "Relabel", Want: len(ref), Got: len(part), Detail: "partition length"}
	}
	pl := distinctLabels(part)
	rl := distinctLabels(ref)

	pPos := make(map[int]int, len(pl))
	for i, l := range pl {
		pPos[l] = i
	}
	rPos := make(map[int]int, len(rl))
	for j, l := range rl {
		rPos[l] = j
	}

	counts := make([][]int, len(pl))
	for i := range counts {
		counts[i] = make([]int, len(rl))
	}
	for i := range part {
		if part[i] == Missing || ref[i] == Missing {
			continue
		}
		counts[pPos[part[i]]][rPos[ref[i]]]++
	}

	usedP := make([]bool, len(pl))
	usedR := make([]bool, len(rl))
	mapping := make(map[int]int, len(pl))
	rounds := len(pl)
	if len(rl) < rounds {
		rounds = len(rl)
	}
	for round := 0; round < rounds; round++ {
		best, bi, bj := 0, -1, -1
		for i := range pl {
			if usedP[i] {
				continue
			}
			for j := range rl {
				if usedR[j] {
					continue
				}
				if counts[i][j] > best {
					best, bi, bj = counts[i][j], i, j
				}
			}
		}
		if bi < 0 {
			break
		}
		usedP[bi] = true
		usedR[bj] = true
		mapping[pl[bi]] = rl[bj]
	}

	out := make([]int, len(part))
	for i, l := range part {
		if l == Missing {
			continue
		}
		if nl, ok := mapping[l]; ok {
			out[i] = nl
		} else {
			out[i] = l
		}
	}
	return out, nil
}

// RelabelMatrix returns a copy of E with every partition relabelled
// against the reference column. The reference column is copied as is.
func RelabelMatrix(e *Matrix, refCol int) (*Matrix, error) {
	if refCol < 0 || refCol >= e.cols {
		return nil, ConfigError{Field: "reference column", Reason: "index out of range"}
	}
	out := NewMatrix(e.rows, e.cols)
	ref := e.Column(refCol)
	for c := 0; c < e.cols; c++ {
		if c == refCol {
			copy(out.labels[c*e.rows:(c+1)*e.rows], ref)
			continue
		}
		relabelled, err := Relabel(e.Column(c), ref)
		if err != nil {
			return nil, err
		}
		copy(out.labels[c*e.rows:(c+1)*e.rows], relabelled)
	}
	return out, nil
}
