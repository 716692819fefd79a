package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

type cell struct{ x, y int }

// grid bins points into square cells of side size. Any two points closer
// than size lie in the same or adjacent cells.
type grid struct {
	size  float64
	cells map[cell][]int
}

func newGrid(size float64, pts []r2.Vec) *grid {
	if !(size > 0) || math.IsInf(size, 0) {
		size = 1
	}
	g := &grid{size: size, cells: make(map[cell][]int, len(pts))}
	for i, p := range pts {
		k := g.cellOf(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) cellOf(p r2.Vec) cell {
	return cell{x: int(math.Floor(p.X / g.size)), y: int(math.Floor(p.Y / g.size))}
}

// near calls fn for every point binned in the 3x3 block of cells around p,
// in a fixed order.
func (g *grid) near(p r2.Vec, fn func(i int)) {
	c := g.cellOf(p)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for _, i := range g.cells[cell{x: c.x + dx, y: c.y + dy}] {
				fn(i)
			}
		}
	}
}
