package domain

// ChannelRange is one sensor catalog entry: the admissible value range, the
// display unit, and for a subset of channels the maximum plausible change
// per hour. MaxHourlyDelta of 0 means the channel has no rate check.
type ChannelRange struct {
	Min            float64
	Max            float64
	Unit           string
	MaxHourlyDelta float64
}

// catalog is the static sensor catalog. Bounds are physical plausibility
// limits for ambient outdoor monitoring, not statistical expectations.
var catalog = map[Channel]ChannelRange{
	ChannelTemperature: {Min: -50, Max: 60, Unit: "°C", MaxHourlyDelta: 10},
	ChannelHumidity:    {Min: 0, Max: 100, Unit: "%", MaxHourlyDelta: 30},
	ChannelAirQuality:  {Min: 0, Max: 500, Unit: "AQI", MaxHourlyDelta: 100},
	ChannelPM25:        {Min: 0, Max: 500, Unit: "μg/m³"},
	ChannelPM10:        {Min: 0, Max: 1000, Unit: "μg/m³"},
	ChannelCO2:         {Min: 300, Max: 5000, Unit: "ppm"},
	ChannelPressure:    {Min: 950, Max: 1050, Unit: "hPa", MaxHourlyDelta: 15},
}

// RangeFor returns the catalog entry for a channel.
func RangeFor(c Channel) (ChannelRange, bool) {
	r, ok := catalog[c]
	return r, ok
}
