package domain

// Immutable geographic location. X is longitude, Y is latitude, matching the
// feature service geometry encoding.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(latitudeY, longitudeX float64) Point {
	return Point{X: longitudeX, Y: latitudeY}
}

func (p Point) Latitude() float64  { return p.Y }
func (p Point) Longitude() float64 { return p.X }

// RenderGeometry returns the optimizer geometry shape {x: longitude, y: latitude}.
func (p Point) RenderGeometry() map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

// Return coordinates as [lon, lat] for external API compatibility.
func (p Point) CoordsToList() []float64 { return []float64{p.X, p.Y} }
