package multires

// vertMap lists, per vertex, the elements that use it (compressed rows).
type vertMap struct {
	start []int32
	items []int32
}

func (m *vertMap) users(v int) []int32 {
	if v < 0 || v+1 >= len(m.start) {
		return nil
	}
	return m.items[m.start[v]:m.start[v+1]]
}

func newVertMap(totvert int, elems int, verts func(i int) []int) vertMap {
	m := vertMap{start: make([]int32, totvert+1)}
	for i := 0; i < elems; i++ {
		for _, v := range verts(i) {
			m.start[v+1]++
		}
	}
	for v := 0; v < totvert; v++ {
		m.start[v+1] += m.start[v]
	}
	m.items = make([]int32, m.start[totvert])
	fill := append([]int32(nil), m.start[:totvert]...)
	for i := 0; i < elems; i++ {
		for _, v := range verts(i) {
			m.items[fill[v]] = int32(i)
			fill[v]++
		}
	}
	return m
}

// levelMaps holds the vert→face and vert→edge maps of every legacy level but
// the last, indexed by level.
type levelMaps struct {
	lm    *LegacyMultires
	faces []vertMap
	edges []vertMap
}

func newLevelMaps(lm *LegacyMultires) *levelMaps {
	n := len(lm.Levels) - 1
	m := &levelMaps{lm: lm, faces: make([]vertMap, n), edges: make([]vertMap, n)}
	for k := 0; k < n; k++ {
		lvl := &lm.Levels[k]
		m.faces[k] = newVertMap(lvl.TotVert, len(lvl.Faces), func(i int) []int { return lvl.Faces[i].verts() })
		m.edges[k] = newVertMap(lvl.TotVert, len(lvl.Edges), func(i int) []int { return lvl.Edges[i].V[:] })
	}
	return m
}

// faceMid returns the centre vertex of the level k face made of verts.
func (m *levelMaps) faceMid(k int, verts [4]int) (int, error) {
	faces := m.lm.Levels[k].Faces
	for _, fi := range m.faces[k].users(verts[0]) {
		f := faces[fi].verts()
		found := 0
		for _, v := range verts {
			for _, w := range f {
				if v == w {
					found++
					break
				}
			}
		}
		if found == len(verts) {
			return faces[fi].Mid, nil
		}
	}
	return 0, &LegacyError{Level: k, What: "missing face"}
}

// edgeMid returns the midpoint vertex of the level k edge a-b.
func (m *levelMaps) edgeMid(k, a, b int) (int, error) {
	for _, e1 := range m.edges[k].users(a) {
		for _, e2 := range m.edges[k].users(b) {
			if e1 == e2 {
				return m.lm.Levels[k].Edges[e1].Mid, nil
			}
		}
	}
	return 0, &LegacyError{Level: k, What: "missing edge"}
}

// quadTask is a square block of a corner grid spanning span samples, with the
// legacy vertices at its corners in grid order (x0,y0), (x1,y0), (x1,y1), (x0,y1).
// Those four vertices form a face of legacy level k.
type quadTask struct {
	k, x0, y0, span int
	c               [4]int
}

// buildRemap maps every sample of every corner grid at the final level to the
// legacy vertex it corresponds to. Grids follow the base mesh loop order.
func buildRemap(lm *LegacyMultires) ([][]int, error) {
	totlvl := len(lm.Levels) - 1
	n := GridSize(totlvl)
	maps := newLevelMaps(lm)
	remap := make([][]int, 0, lm.numLoops())

	stack := make([]quadTask, 0, 4*totlvl)
	for _, f := range lm.Levels[0].Faces {
		verts := f.verts()
		k := len(verts)
		for s := range verts {
			cv, pv, nv := verts[s], verts[(s+k-1)%k], verts[(s+1)%k]
			ePrev, err := maps.edgeMid(0, pv, cv)
			if err != nil {
				return nil, err
			}
			eNext, err := maps.edgeMid(0, cv, nv)
			if err != nil {
				return nil, err
			}
			grid := make([]int, n*n)
			set := func(x, y, v int) { grid[y*n+x] = v }
			set(0, 0, f.Mid)
			set(n-1, 0, ePrev)
			set(n-1, n-1, cv)
			set(0, n-1, eNext)

			stack = append(stack[:0], quadTask{k: 1, span: n - 1, c: [4]int{f.Mid, ePrev, cv, eNext}})
			for len(stack) > 0 {
				t := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if t.span <= 1 {
					continue
				}
				mid, err := maps.faceMid(t.k, t.c)
				if err != nil {
					return nil, err
				}
				var e [4]int
				for i := range e {
					if e[i], err = maps.edgeMid(t.k, t.c[i], t.c[(i+1)%4]); err != nil {
						return nil, err
					}
				}
				h := t.span / 2
				x0, y0, x1, y1 := t.x0, t.y0, t.x0+t.span, t.y0+t.span
				set(x0+h, y0+h, mid)
				set(x0+h, y0, e[0])
				set(x1, y0+h, e[1])
				set(x0+h, y1, e[2])
				set(x0, y0+h, e[3])
				stack = append(stack,
					quadTask{k: t.k + 1, x0: x0, y0: y0, span: h, c: [4]int{t.c[0], e[0], mid, e[3]}},
					quadTask{k: t.k + 1, x0: x0 + h, y0: y0, span: h, c: [4]int{e[0], t.c[1], e[1], mid}},
					quadTask{k: t.k + 1, x0: x0 + h, y0: y0 + h, span: h, c: [4]int{mid, e[1], t.c[2], e[2]}},
					quadTask{k: t.k + 1, x0: x0, y0: y0 + h, span: h, c: [4]int{e[3], mid, e[2], t.c[3]}},
				)
			}
			remap = append(remap, grid)
		}
	}
	return remap, nil
}
