/*
Copyright © 2024 the citygrid authors.
This file is part of citygrid.

citygrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

citygrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with citygrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package geo

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom/proj"
)

// WGS84 is the identifier of the longitude-latitude reference system that
// city outputs are written in by default.
const WGS84 = "EPSG:4326"

type crsDef struct {
	proj4, wkt string
}

const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// knownCRS holds the reference systems that are commonly attached to the
// city and kiln datasets, keyed by every name they are written under.
var knownCRS = map[string]crsDef{
	"EPSG:4326":  {proj4: "+proj=longlat +datum=WGS84 +no_defs", wkt: wgs84WKT},
	"EPSG:3857":  {proj4: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +no_defs"},
	"EPSG:32643": {proj4: "+proj=utm +zone=43 +datum=WGS84 +units=m +no_defs"},
	"EPSG:32644": {proj4: "+proj=utm +zone=44 +datum=WGS84 +units=m +no_defs"},
	"EPSG:32645": {proj4: "+proj=utm +zone=45 +datum=WGS84 +units=m +no_defs"},
	"EPSG:32646": {proj4: "+proj=utm +zone=46 +datum=WGS84 +units=m +no_defs"},
}

// normalizeCRS maps the OGC URN forms written by common GIS tools onto
// "EPSG:nnnn" names.
func normalizeCRS(id string) string {
	id = strings.TrimSpace(id)
	switch u := strings.ToUpper(id); {
	case u == "URN:OGC:DEF:CRS:OGC:1.3:CRS84", u == "CRS84", u == "WGS84":
		return WGS84
	case strings.HasPrefix(u, "URN:OGC:DEF:CRS:EPSG:"):
		code := u[strings.LastIndex(u, ":")+1:]
		return "EPSG:" + code
	case strings.HasPrefix(u, "EPSG:"):
		return u
	}
	return id
}

// ResolveSR returns the spatial reference for a CRS identifier. The
// identifier can be a known EPSG code, an OGC URN for one, or any
// PROJ4 or WKT string.
func ResolveSR(id string) (*proj.SR, error) {
	if id == "" {
		return nil, fmt.Errorf("geo: empty coordinate reference system")
	}
	if d, ok := knownCRS[normalizeCRS(id)]; ok {
		return proj.Parse(d.proj4)
	}
	sr, err := proj.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("geo: resolving coordinate reference system %q: %w", id, err)
	}
	return sr, nil
}

// prjWKT returns the WKT text to write into a shapefile .prj file for the
// given CRS identifier, or false if none is known.
func prjWKT(id string) (string, bool) {
	if d, ok := knownCRS[normalizeCRS(id)]; ok && d.wkt != "" {
		return d.wkt, true
	}
	for _, w := range []string{"GEOGCS", "PROJCS"} {
		if strings.HasPrefix(strings.TrimSpace(id), w) {
			return id, true
		}
	}
	return "", false
}

// SameCRS reports whether a and b name the same reference system.
func SameCRS(a, b string) bool {
	return normalizeCRS(a) == normalizeCRS(b)
}
