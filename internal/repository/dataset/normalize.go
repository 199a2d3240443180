package dataset

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/poi-insight/internal/domain"
)

// probe различает принимаемые формы документа по верхнеуровневым полям
type probe struct {
	Type    string          `json:"type"`
	Records json.RawMessage `json:"records"`
	Data    json.RawMessage `json:"data"`
}

// Normalize приводит документ к плоскому списку записей. Принимаются две
// формы: GeoJSON FeatureCollection и массив свободных записей (голый либо
// под ключом records/data). Возвращает формат исходного документа.
func Normalize(data []byte) ([]domain.RawRecord, string, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, "", eris.New("empty document")
	}

	if trimmed[0] == '[' {
		records, err := decodeRecords(trimmed)
		return records, domain.DatasetFormatRecords, err
	}

	var p probe
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, "", eris.Wrap(err, "parse document")
	}

	switch {
	case p.Type == "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(trimmed, &fc); err != nil {
			return nil, "", eris.Wrap(err, "parse feature collection")
		}
		return featureRecords(&fc), domain.DatasetFormatFeatureCollection, nil

	case len(p.Records) > 0:
		records, err := decodeRecords(p.Records)
		return records, domain.DatasetFormatRecords, err

	case len(p.Data) > 0:
		records, err := decodeRecords(p.Data)
		return records, domain.DatasetFormatRecords, err
	}

	return nil, "", eris.New("unrecognized document shape: want FeatureCollection or record array")
}

func decodeRecords(data []byte) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "parse records")
	}
	return records, nil
}

// featureRecords разворачивает свойства черт в записи. Координаты берутся
// из точечной геометрии и важнее одноимённых свойств; черты без точечной
// геометрии остаются записями без координат и отбрасываются при загрузке
// со счётом.
func featureRecords(fc *geojson.FeatureCollection) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		rec := make(domain.RawRecord, len(f.Properties)+3)
		for k, v := range f.Properties {
			rec[k] = v
		}
		if f.ID != "" {
			if _, ok := rec["id"]; !ok {
				rec["id"] = f.ID
			}
		}
		if pt, ok := f.Geometry.(*geom.Point); ok && !pt.Empty() {
			rec["lng"] = pt.X()
			rec["lat"] = pt.Y()
		}
		records = append(records, rec)
	}
	return records
}
