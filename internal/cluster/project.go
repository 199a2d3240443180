package cluster

import "math"

// Проекция Web Mercator в нормированное пространство [0,1].
// Широта ограничивается рабочим диапазоном проекции.

func lngX(lng float64) float64 {
	return lng/360 + 0.5
}

func latY(lat float64) float64 {
	sin := math.Sin(lat * math.Pi / 180)
	if sin >= 1 {
		return 0
	}
	if sin <= -1 {
		return 1
	}
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	if y < 0 {
		return 0
	}
	if y > 1 {
		return 1
	}
	return y
}

func xLng(x float64) float64 {
	return (x - 0.5) * 360
}

func yLat(y float64) float64 {
	y2 := (180 - y*360) * math.Pi / 180
	return 360*math.Atan(math.Exp(y2))/math.Pi - 90
}

func clampLng(lng float64) float64 {
	return math.Max(-180, math.Min(180, lng))
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}
