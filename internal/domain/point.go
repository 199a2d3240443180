package domain

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Point представляет классифицированную точку набора данных.
// Точки принадлежат хранилищу и не изменяются после загрузки.
type Point struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Group string  `json:"group"`
	Lng   float64 `json:"lng"`
	Lat   float64 `json:"lat"`
}

// BBox представляет географический прямоугольник в WGS84
type BBox struct {
	MinLng float64 `json:"min_lng" validate:"gte=-180,lte=180"`
	MinLat float64 `json:"min_lat" validate:"gte=-90,lte=90"`
	MaxLng float64 `json:"max_lng" validate:"gte=-180,lte=180"`
	MaxLat float64 `json:"max_lat" validate:"gte=-90,lte=90"`
}

// MarshalJSON кодирует прямоугольник как [minLng, minLat, maxLng, maxLat]
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat})
}

// UnmarshalJSON принимает массив [minLng, minLat, maxLng, maxLat]
func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 4 {
		return eris.Errorf("bbox: expected 4 coordinates, got %d", len(coords))
	}
	b.MinLng, b.MinLat, b.MaxLng, b.MaxLat = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// EmptyBBox возвращает вырожденный прямоугольник для накопления через Extend
func EmptyBBox() BBox {
	return BBox{MinLng: 180, MinLat: 90, MaxLng: -180, MaxLat: -90}
}

// Extend расширяет прямоугольник до включения точки
func (b *BBox) Extend(lng, lat float64) {
	if lng < b.MinLng {
		b.MinLng = lng
	}
	if lng > b.MaxLng {
		b.MaxLng = lng
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
}

// Contains проверяет попадание точки в прямоугольник (границы включительно)
func (b BBox) Contains(lng, lat float64) bool {
	return lng >= b.MinLng && lng <= b.MaxLng && lat >= b.MinLat && lat <= b.MaxLat
}

// Intersects проверяет пересечение двух прямоугольников
func (b BBox) Intersects(o BBox) bool {
	return b.MinLng <= o.MaxLng && b.MaxLng >= o.MinLng &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// IsEmpty сообщает, что прямоугольник не накопил ни одной точки
func (b BBox) IsEmpty() bool {
	return b.MinLng > b.MaxLng || b.MinLat > b.MaxLat
}

// Center возвращает центр прямоугольника
func (b BBox) Center() (lng, lat float64) {
	return (b.MinLng + b.MaxLng) / 2, (b.MinLat + b.MaxLat) / 2
}

// GroupStats представляет количество точек и охватывающий прямоугольник группы
type GroupStats struct {
	Count int  `json:"count"`
	BBox  BBox `json:"bbox"`
}

// Statistics представляет сводку загруженного набора данных
type Statistics struct {
	TotalPoints    int                   `json:"total_points"`
	DroppedRecords int                   `json:"dropped_records"`
	Groups         map[string]GroupStats `json:"groups"`
	Generation     uint64                `json:"generation"`
	Ruleset        RulesetMeta           `json:"ruleset"`
	DatasetSource  string                `json:"dataset_source,omitempty"`
	IngestedAt     time.Time             `json:"ingested_at"`
}
