// Package mapbox resolves Wisconsin street addresses to coordinates with the
// Mapbox Geocoding API and finds the legislative districts containing a point
// with the Mapbox Tilequery API.
package mapbox
