package transform

import (
	"image"
	"math"
)

// contour is a connected group of edge pixels with its traced outer boundary
type contour struct {
	boundary               []image.Point
	minX, minY, maxX, maxY int
}

// boundingRect returns the smallest axis-aligned rectangle enclosing the contour
func (c *contour) boundingRect() Rect {
	return Rect{X0: c.minX, Y0: c.minY, X1: c.maxX + 1, Y1: c.maxY + 1}
}

// area computes the enclosed area of the traced boundary with the shoelace
// formula. Open or degenerate boundaries yield an area near zero.
func (c *contour) area() float64 {
	n := len(c.boundary)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := c.boundary[i]
		q := c.boundary[(i+1)%n]
		sum += float64(p.X*q.Y - q.X*p.Y)
	}
	return math.Abs(sum) / 2
}

// contains reports whether the other contour's bounding box lies strictly
// inside this contour's bounding box
func (c *contour) contains(other *contour) bool {
	return c.minX < other.minX && c.minY < other.minY &&
		c.maxX > other.maxX && c.maxY > other.maxY
}

// edgeMap is a binary edge image
type edgeMap struct {
	width, height int
	on            []bool
}

func (e *edgeMap) at(x, y int) bool {
	if x < 0 || x >= e.width || y < 0 || y >= e.height {
		return false
	}
	return e.on[y*e.width+x]
}

// Moore neighborhood in clockwise order starting from the west neighbor
var mooreOffsets = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// findExternalContours extracts the outer boundary of each 8-connected
// edge component in scan order. Components nested inside another
// component's bounding box are dropped, so holes are ignored.
func findExternalContours(edges *edgeMap) []*contour {
	visited := make([]bool, len(edges.on))
	var found []*contour

	for y := 0; y < edges.height; y++ {
		for x := 0; x < edges.width; x++ {
			idx := y*edges.width + x
			if !edges.on[idx] || visited[idx] {
				continue
			}
			c := flood(edges, visited, image.Point{X: x, Y: y})
			c.boundary = traceBoundary(edges, image.Point{X: x, Y: y})
			found = append(found, c)
		}
	}

	// Keep external contours only
	var external []*contour
	for _, c := range found {
		nested := false
		for _, other := range found {
			if other != c && other.contains(c) {
				nested = true
				break
			}
		}
		if !nested {
			external = append(external, c)
		}
	}
	return external
}

// flood marks the 8-connected component containing start as visited and
// records its bounding box. Start is the topmost-leftmost pixel because
// components are discovered in scan order.
func flood(edges *edgeMap, visited []bool, start image.Point) *contour {
	c := &contour{minX: start.X, minY: start.Y, maxX: start.X, maxY: start.Y}
	stack := []image.Point{start}
	visited[start.Y*edges.width+start.X] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < c.minX {
			c.minX = p.X
		}
		if p.X > c.maxX {
			c.maxX = p.X
		}
		if p.Y < c.minY {
			c.minY = p.Y
		}
		if p.Y > c.maxY {
			c.maxY = p.Y
		}

		for _, o := range mooreOffsets {
			nx, ny := p.X+o.X, p.Y+o.Y
			if !edges.at(nx, ny) {
				continue
			}
			nidx := ny*edges.width + nx
			if !visited[nidx] {
				visited[nidx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return c
}

// traceBoundary walks the outer boundary of the component containing
// start using Moore-neighbor tracing. Start must be the topmost-leftmost
// pixel of the component.
func traceBoundary(edges *edgeMap, start image.Point) []image.Point {
	boundary := []image.Point{start}

	// The west neighbor of the topmost-leftmost pixel is always background
	prev := image.Point{X: start.X - 1, Y: start.Y}
	cur := start
	maxSteps := edges.width * edges.height

	for step := 0; step < maxSteps; step++ {
		// Locate the backtrack position in the neighborhood of cur
		startIdx := 0
		for i, o := range mooreOffsets {
			if cur.X+o.X == prev.X && cur.Y+o.Y == prev.Y {
				startIdx = i
				break
			}
		}

		found := false
		for i := 1; i <= 8; i++ {
			idx := (startIdx + i) % 8
			next := image.Point{X: cur.X + mooreOffsets[idx].X, Y: cur.Y + mooreOffsets[idx].Y}
			if edges.at(next.X, next.Y) {
				prev = image.Point{
					X: cur.X + mooreOffsets[(startIdx+i+7)%8].X,
					Y: cur.Y + mooreOffsets[(startIdx+i+7)%8].Y,
				}
				cur = next
				found = true
				break
			}
		}
		if !found || cur == start {
			break
		}
		boundary = append(boundary, cur)
	}
	return boundary
}
