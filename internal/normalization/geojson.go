package normalization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	domainagg "github.com/yungbote/reforest-backend/internal/domain/aggregates"
)

const (
	opGeometry = "Normalize.Geometry"
	opPoint    = "Normalize.PointCoordinates"
)

var geometryTypes = map[string]struct{}{
	"Point":              {},
	"MultiPoint":         {},
	"LineString":         {},
	"MultiLineString":    {},
	"Polygon":            {},
	"MultiPolygon":       {},
	"GeometryCollection": {},
}

type geoEnvelope struct {
	Type        string            `json:"type"`
	Geometry    json.RawMessage   `json:"geometry"`
	Features    []json.RawMessage `json:"features"`
	Coordinates json.RawMessage   `json:"coordinates"`
	Geometries  json.RawMessage   `json:"geometries"`
}

// PointCoordinates is a WGS84 position extracted from a Point Feature.
type PointCoordinates struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// NormalizeGeometry reduces a Feature, FeatureCollection or bare geometry to
// the bare geometry the store persists. FeatureCollections contribute their
// first feature only.
func NormalizeGeometry(raw json.RawMessage) (datatypes.JSON, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, invalidGeoJSON("%v", err)
	}
	switch env.Type {
	case "Feature":
		return bareGeometry(env.Geometry)
	case "FeatureCollection":
		if len(env.Features) == 0 {
			return nil, invalidGeoJSON("feature collection has no features")
		}
		first, err := decodeEnvelope(env.Features[0])
		if err != nil || first.Type != "Feature" {
			return nil, invalidGeoJSON("first member of feature collection is not a feature")
		}
		return bareGeometry(first.Geometry)
	default:
		return bareGeometry(raw)
	}
}

func bareGeometry(raw json.RawMessage) (datatypes.JSON, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, invalidGeoJSON("geometry: %v", err)
	}
	if _, ok := geometryTypes[env.Type]; !ok {
		return nil, invalidGeoJSON("unsupported geometry type %q", env.Type)
	}
	if env.Type == "GeometryCollection" {
		if isNull(env.Geometries) {
			return nil, invalidGeoJSON("geometry collection without geometries")
		}
	} else if isNull(env.Coordinates) {
		return nil, invalidGeoJSON("%s without coordinates", env.Type)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, invalidGeoJSON("%v", err)
	}
	return datatypes.JSON(buf.Bytes()), nil
}

// ExtractPointCoordinates reads lat/lon/altitude from a Point Feature.
func ExtractPointCoordinates(raw json.RawMessage) (PointCoordinates, error) {
	var out PointCoordinates
	var feature struct {
		Type     string `json:"type"`
		Geometry *struct {
			Type        string            `json:"type"`
			Coordinates []json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &feature); err != nil {
		return out, invalidCoordinates("geometry is not valid JSON: %v", err)
	}
	if feature.Type != "Feature" {
		return out, invalidCoordinates("expected a GeoJSON Feature, got %q", feature.Type)
	}
	if feature.Geometry == nil || feature.Geometry.Type != "Point" {
		return out, invalidCoordinates("single tree location must be a Point geometry")
	}
	coords := feature.Geometry.Coordinates
	if len(coords) < 2 {
		return out, invalidCoordinates("point coordinates need at least longitude and latitude")
	}
	lon, ok := number(coords[0])
	if !ok {
		return out, invalidCoordinates("longitude must be a number")
	}
	lat, ok := number(coords[1])
	if !ok {
		return out, invalidCoordinates("latitude must be a number")
	}
	if lon < -180 || lon > 180 {
		return out, invalidCoordinates("longitude %v out of range [-180, 180]", lon)
	}
	if lat < -90 || lat > 90 {
		return out, invalidCoordinates("latitude %v out of range [-90, 90]", lat)
	}
	out.Longitude = lon
	out.Latitude = lat
	if len(coords) >= 3 {
		alt, ok := number(coords[2])
		if !ok {
			return out, invalidCoordinates("altitude must be a number")
		}
		out.Altitude = &alt
	}
	return out, nil
}

func decodeEnvelope(raw json.RawMessage) (geoEnvelope, error) {
	var env geoEnvelope
	if isNull(raw) {
		return env, fmt.Errorf("missing geometry")
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	env.Type = strings.TrimSpace(env.Type)
	return env, nil
}

func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if isNull(raw) {
		return 0, false
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func invalidGeoJSON(format string, args ...any) error {
	return domainagg.NewReasonError(domainagg.CodeValidation, opGeometry, domainagg.ReasonInvalidGeoJSON,
		"invalid geojson: "+fmt.Sprintf(format, args...), nil)
}

func invalidCoordinates(format string, args ...any) error {
	return domainagg.NewReasonError(domainagg.CodeValidation, opPoint, domainagg.ReasonInvalidCoordinates,
		fmt.Sprintf(format, args...), nil)
}
