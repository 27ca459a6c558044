package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// clamp limits v to [minVal, maxVal].
func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// unit returns v scaled to length 1, or the zero vector.
func unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n < 1e-12 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

// headingVec returns the unit vector for a heading in radians.
func headingVec(h float64) r2.Vec {
	return r2.Vec{X: math.Cos(h), Y: math.Sin(h)}
}

// vecHeading returns the heading of v, or fallback for the zero vector.
func vecHeading(v r2.Vec, fallback float64) float64 {
	if v.X == 0 && v.Y == 0 {
		return fallback
	}
	return math.Atan2(v.Y, v.X)
}

// distance returns the Euclidean distance between two points.
func distance(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// ClampToWorld limits p to the world rectangle.
func ClampToWorld(p r2.Vec, width, height float64) r2.Vec {
	return r2.Vec{X: clamp(p.X, 0, width), Y: clamp(p.Y, 0, height)}
}
