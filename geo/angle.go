package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerateCorner is returned when two of the three corner points coincide
var ErrDegenerateCorner = errors.New("degenerate corner: coincident points")

// CornerAngle returns the angle at centre between left and right, in whole degrees.
// Any two coincident points make the corner degenerate, including left equal
// to right where the angle would otherwise be 0.
func CornerAngle(centre, left, right orb.Point) (uint8, error) {
	cl := planar.DistanceSquared(centre, left)
	cr := planar.DistanceSquared(centre, right)
	lr := planar.DistanceSquared(left, right)
	if cl == 0 || cr == 0 || lr == 0 {
		return 0, ErrDegenerateCorner
	}

	// law of cosines on squared distances
	ratio := (cl + cr - lr) / (2 * math.Sqrt(cl*cr))
	ratio = math.Max(-1, math.Min(1, ratio))
	degrees := math.Round(math.Acos(ratio) * 180 / math.Pi)
	return uint8(degrees), nil
}
