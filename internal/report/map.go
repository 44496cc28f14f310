package report

import (
	"fmt"
	"html/template"
	"io"

	"visioniq.io/visioniq/internal/store"
)

const mapZoom = 12

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Vehicle Map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
{{- if .Markers}}
<div id="map"></div>
<script>
var map = L.map("map").setView([{{.Center.Latitude}}, {{.Center.Longitude}}], {{.Zoom}});
L.tileLayer("https://tile.openstreetmap.org/{z}/{x}/{y}.png", {
  maxZoom: 19,
  attribution: "&copy; OpenStreetMap contributors"
}).addTo(map);
var markers = {{.Markers}};
markers.forEach(function (m) {
  L.circleMarker([m.lat, m.lon], {
    radius: 5,
    color: "blue",
    fill: true,
    fillColor: "blue",
    fillOpacity: 0.7
  }).bindPopup(m.popup).addTo(map);
});
</script>
{{- else}}
<p>No location data recorded yet.</p>
{{- end}}
</body>
</html>
`))

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type mapData struct {
	Center  store.Location
	Zoom    int
	Markers []marker
}

// Map writes an HTML page with one circle marker per located sample,
// centred on the mean coordinate.
func (r *Renderer) Map(w io.Writer) error {
	samples, err := r.store.ReadAll()
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	data := mapData{Zoom: mapZoom}
	var sumLat, sumLon float64
	for _, s := range samples {
		if s.Location == nil {
			continue
		}
		sumLat += s.Location.Latitude
		sumLon += s.Location.Longitude
		data.Markers = append(data.Markers, marker{
			Lat:   s.Location.Latitude,
			Lon:   s.Location.Longitude,
			Popup: fmt.Sprintf("Charging Level: %v%%, Mileage: %v miles", s.ChargingLevel, s.Mileage),
		})
	}
	if n := float64(len(data.Markers)); n > 0 {
		data.Center = store.Location{Latitude: sumLat / n, Longitude: sumLon / n}
	}

	if err := mapTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}
