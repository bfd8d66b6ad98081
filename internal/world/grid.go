package world

// cellSize is chosen so a 3x3 neighbourhood of cells covers the default
// visibility range.
const cellSize = 4096

type cellKey struct {
	region uint16
	cx     uint32
	cy     uint32
}

func cellOf(region uint16, pos Position) cellKey {
	return cellKey{region: region, cx: pos.X / cellSize, cy: pos.Y / cellSize}
}

// grid tracks which actors stand in which cell. Guarded by State.mu.
type grid struct {
	cells map[cellKey]map[ActorID]struct{}
}

func newGrid() *grid {
	return &grid{cells: make(map[cellKey]map[ActorID]struct{})}
}

func (g *grid) add(id ActorID, region uint16, pos Position) {
	k := cellOf(region, pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ActorID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *grid) remove(id ActorID, region uint16, pos Position) {
	k := cellOf(region, pos)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *grid) move(id ActorID, oldRegion uint16, oldPos Position, newRegion uint16, newPos Position) {
	if cellOf(oldRegion, oldPos) == cellOf(newRegion, newPos) {
		return
	}
	g.remove(id, oldRegion, oldPos)
	g.add(id, newRegion, newPos)
}

// nearby returns every actor in the 3x3 cells around pos. The caller does
// the exact distance check.
func (g *grid) nearby(region uint16, pos Position) []ActorID {
	center := cellOf(region, pos)
	var out []ActorID
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			cx := int64(center.cx) + int64(dx)
			cy := int64(center.cy) + int64(dy)
			if cx < 0 || cy < 0 {
				continue
			}
			k := cellKey{region: region, cx: uint32(cx), cy: uint32(cy)}
			for id := range g.cells[k] {
				out = append(out, id)
			}
		}
	}
	return out
}
