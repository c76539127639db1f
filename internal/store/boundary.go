package store

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// LoadBoundary reads every polygon record from a shapefile, reprojects them
// into the target CRS, and returns them merged as one MultiPolygon clip
// geometry. The shapefile's .prj sidecar supplies the source CRS; a missing
// or unreadable projection is a GeometryError because clipping in the wrong
// CRS silently produces garbage.
func LoadBoundary(path, targetProj4 string) (geom.Polygonal, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening boundary shapefile %s: %w", path, err)
	}
	defer dec.Close()

	srcSR, err := dec.SR()
	if err != nil {
		return nil, &domain.GeometryError{Op: "clip", Msg: "boundary CRS is undefined", Err: err}
	}
	dstSR, err := proj.Parse(targetProj4)
	if err != nil {
		return nil, &domain.GeometryError{Op: "clip", Msg: "parsing target CRS", Err: err}
	}
	trans, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, &domain.GeometryError{Op: "clip", Msg: "building boundary transform", Err: err}
	}

	var merged geom.MultiPolygon
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, &domain.GeometryError{Op: "clip", Msg: "reprojecting boundary", Err: err}
		}
		switch p := gg.(type) {
		case geom.Polygon:
			merged = append(merged, p)
		case geom.MultiPolygon:
			merged = append(merged, p...)
		default:
			// Skip stray point/line records; only areas can clip.
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("decoding boundary shapefile %s: %w", path, err)
	}
	if len(merged) == 0 {
		return nil, domain.Geometryf("clip", "boundary shapefile %s contains no polygons", path)
	}
	return merged, nil
}
