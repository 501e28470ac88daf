package weatherapi

// computeAQI derives a simplified 0-500 air quality index from PM2.5 and
// PM10 concentrations using EPA-style breakpoints; the larger pollutant
// contribution wins. The upstream provider reports raw pollutant values
// only, so the index is computed here. Defaults to 25 ("good") when no
// particulate data is available.
func computeAQI(pm25, pm10 float64) int {
	aqi := 0

	// PM2.5 contribution.
	switch {
	case pm25 <= 0:
	case pm25 <= 12:
		aqi = max(aqi, int(pm25*50/12))
	case pm25 <= 35.4:
		aqi = max(aqi, int(50+(pm25-12)*50/23.4))
	default:
		aqi = max(aqi, min(500, int(100+(pm25-35.4)*100/55.4)))
	}

	// PM10 contribution.
	var pm10AQI int
	switch {
	case pm10 <= 0:
	case pm10 <= 54:
		pm10AQI = int(pm10 * 50 / 54)
	case pm10 <= 154:
		pm10AQI = int(50 + (pm10-54)*50/100)
	default:
		pm10AQI = min(500, int(100+(pm10-154)*100/250))
	}
	aqi = max(aqi, pm10AQI)

	if aqi == 0 {
		return 25
	}
	return max(1, min(500, aqi))
}
