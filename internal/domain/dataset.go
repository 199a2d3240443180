package domain

// RawRecord представляет слабо типизированную запись источника данных.
// Поля координат/имени/категории извлекаются по упорядоченным спискам
// имён-кандидатов на границе загрузки.
type RawRecord map[string]interface{}

// Dataset source kinds
const (
	DatasetFormatFeatureCollection = "feature_collection"
	DatasetFormatRecords           = "records"
)

// Coordinate systems accepted at ingestion
const (
	CoordSysWGS84 = "wgs84"
	CoordSysGCJ02 = "gcj02"
	CoordSysBD09  = "bd09"
)

// DatasetMeta представляет метаданные загруженного набора
type DatasetMeta struct {
	Source   string `json:"source"`
	Format   string `json:"format"`
	CoordSys string `json:"coord_sys"`
	Records  int    `json:"records"`
}
