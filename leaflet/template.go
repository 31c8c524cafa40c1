package leaflet

import "html/template"

// pageTemplate expects a Page. The Page is embedded as JSON in the script;
// popups are inserted as text nodes, never as HTML.
var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { width: 100%; height: 100%; margin: 0; padding: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var page = {{.}};

function popup(text) {
  var el = document.createElement("span");
  el.textContent = text;
  return el;
}

var map = L.map("map").setView([page.reference.lat, page.reference.lon], page.zoom);
L.tileLayer(page.tiles, {attribution: page.attribution, maxZoom: 19}).addTo(map);

L.marker([page.reference.lat, page.reference.lon])
  .bindPopup(popup(page.reference.popup))
  .addTo(map);

var overlays = {};
page.layers.forEach(function (layer) {
  var group = L.featureGroup();
  layer.markers.forEach(function (m) {
    L.marker([m.lat, m.lon]).bindPopup(popup(m.popup)).addTo(group);
  });
  group.addTo(map);
  overlays[layer.name] = group;
});
L.control.layers(null, overlays).addTo(map);
</script>
</body>
</html>
`))
