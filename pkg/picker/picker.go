// Package picker selects the drawing entity under a pointer position.
//
// Selection is deterministic: the entity with the smallest anchor distance
// wins, and among equally distant entities the one with the lowest index.
package picker

import (
	"math"
	"sort"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/drawing"
)

// Hit is a selected entity together with its distance to the query point.
type Hit struct {
	Entity   drawing.Entity
	Distance float64 // world units
}

// Pick returns the entity closest to p whose anchor lies within radius.
// A negative or NaN radius selects nothing.
func Pick(p vec.Vec2, entities []drawing.Entity, radius float64) (Hit, bool) {
	if !validRadius(radius) {
		return Hit{}, false
	}

	best := -1
	bestDist := math.Inf(1)
	for i := range entities {
		d := entities[i].Anchor.DistanceTo(p)
		if d > radius {
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Hit{}, false
	}
	return Hit{Entity: entities[best], Distance: bestDist}, true
}

// Nearest returns up to n entities within radius, ordered by distance and
// then by index. n <= 0 returns all of them.
func Nearest(p vec.Vec2, entities []drawing.Entity, radius float64, n int) []Hit {
	if !validRadius(radius) {
		return nil
	}

	var hits []Hit
	for i := range entities {
		d := entities[i].Anchor.DistanceTo(p)
		if d <= radius {
			hits = append(hits, Hit{Entity: entities[i], Distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Entity.Index < hits[j].Entity.Index
	})
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}
	return hits
}

func validRadius(r float64) bool {
	return r >= 0 && !math.IsNaN(r)
}
