package core

import (
	"math"

	"github.com/signalsfoundry/framecheck/model"
)

// WGS-84 ellipsoid parameters in kilometres.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// GeodeticToITRF converts a WGS-84 location to an Earth-fixed position in km.
func GeodeticToITRF(g model.Geodetic) model.Vector {
	sinLat, cosLat := math.Sincos(g.LatitudeDeg * deg2rad)
	sinLon, cosLon := math.Sincos(g.LongitudeDeg * deg2rad)
	h := g.AltitudeM / 1000.0

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return model.Vector{
		X: (n + h) * cosLat * cosLon,
		Y: (n + h) * cosLat * sinLon,
		Z: (n*(1-wgs84E2) + h) * sinLat,
	}
}

// ITRFToGeodetic converts an Earth-fixed position in km to WGS-84 geodetic
// coordinates using Bowring's iteration.
func ITRFToGeodetic(r model.Vector) model.Geodetic {
	lon := math.Atan2(r.Y, r.X)
	p := math.Hypot(r.X, r.Y)

	lat := math.Atan2(r.Z, p*(1-wgs84E2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(r.Z+wgs84E2*n*sinLat, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(r.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return model.Geodetic{
		LatitudeDeg:  lat * rad2deg,
		LongitudeDeg: lon * rad2deg,
		AltitudeM:    alt * 1000.0,
	}
}

// lookAngles computes azimuth, elevation, range and range rate of a target
// relative to a site, all in the Earth-fixed frame. The site is assumed at rest.
// Rotation to SEZ (south, east, zenith) follows Vallado section 4.4.
func lookAngles(site model.Geodetic, siteR, targetR, targetV model.Vector) model.LookAngles {
	rho := targetR.Sub(siteR)

	sinLat, cosLat := math.Sincos(site.LatitudeDeg * deg2rad)
	sinLon, cosLon := math.Sincos(site.LongitudeDeg * deg2rad)

	toSEZ := func(v model.Vector) (s, e, z float64) {
		s = sinLat*cosLon*v.X + sinLat*sinLon*v.Y - cosLat*v.Z
		e = -sinLon*v.X + cosLon*v.Y
		z = cosLat*cosLon*v.X + cosLat*sinLon*v.Y + sinLat*v.Z
		return s, e, z
	}

	south, east, zenith := toSEZ(rho)
	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	if rng == 0 {
		return model.LookAngles{ElevationDeg: 90}
	}

	el := math.Asin(zenith / rng)
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return model.LookAngles{
		AzimuthDeg:   az * rad2deg,
		ElevationDeg: el * rad2deg,
		RangeKm:      rng,
		RangeRateKmS: rho.Dot(targetV) / rng,
	}
}

// equatorial converts a direction vector into right ascension and declination.
func equatorial(r model.Vector) model.Equatorial {
	d := r.Norm()
	if d == 0 {
		return model.Equatorial{}
	}
	ra := math.Atan2(r.Y, r.X)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	return model.Equatorial{
		RightAscensionDeg: ra * rad2deg,
		DeclinationDeg:    math.Asin(r.Z/d) * rad2deg,
		DistanceKm:        d,
	}
}
