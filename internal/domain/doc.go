// Package domain models environmental sensor readings and the
// classification-and-correction rules applied to them.
//
// # Data Source
//
// Readings originate from the WeatherAPI current-conditions endpoint
// (https://www.weatherapi.com/docs/), fetched on a fixed schedule by the
// collector loop. Each reading carries one value per sensor channel:
// temperature, humidity, a simplified air quality index, particulate matter
// (PM2.5/PM10), CO2, and barometric pressure, plus wind and visibility
// fields that are informational only and never checked for anomalies.
//
// # Sensor Catalog
//
// Every channel has an admissible physical range; out-of-range values are
// impossible sensor output, not weather:
//
//	temperature  -50 .. 60    °C
//	humidity       0 .. 100   %
//	airQuality     0 .. 500   AQI
//	pm25           0 .. 500   μg/m³
//	pm10           0 .. 1000  μg/m³
//	co2          300 .. 5000  ppm
//	pressure     950 .. 1050  hPa
//
// Four channels additionally carry a maximum plausible hourly rate of
// change (temperature 10 °C/h, humidity 30 %/h, airQuality 100 AQI/h,
// pressure 15 hPa/h) used by the rate-of-change classifier.
//
// # Detection
//
// Three independent classifiers run over each incoming reading:
//
//   - range: value outside the catalog range, confidence 1.0
//   - statistical: z-score over a bounded history window exceeds 3.0,
//     confidence min(1, z/5); requires at least 10 samples per channel
//   - rate of change: hourly-normalized delta from the previous reading
//     exceeds the channel threshold, confidence min(1, rate/(2*threshold))
//
// A channel may accumulate several anomaly records in one run, one per
// detection method. The confidence denominators (5.0 and 2*threshold) are
// calibration heuristics inherited from the operational deployment.
//
// # Correction
//
// Flagged values are corrected rather than dropped: out-of-range values are
// clamped to the nearest bound; in-range statistical outliers (more than
// three standard deviations from the historical mean, given at least five
// samples) are replaced with the historical median; everything else is left
// unchanged and the anomaly is marked verified. Corrections produce a new
// reading; the original is never mutated.
package domain
