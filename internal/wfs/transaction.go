package wfs

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/joeblew999/plat-wfs/internal/edit"
	"github.com/joeblew999/plat-wfs/internal/feature"
)

// EncodeTransaction writes tx as a WFS 1.1.0 Transaction document.
// Inserts carry every attribute plus the geometry; updates replace every
// attribute plus the geometry of the feature selected by fid; deletes select
// by fid only.
func EncodeTransaction(out io.Writer, cfg Config, tx *edit.Transaction) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(out)
	w := &writer{enc: enc}

	rootAttrs := []string{
		"service", "WFS",
		"version", Version,
		"xmlns:wfs", nsWFS,
		"xmlns:gml", nsGML,
		"xmlns:ogc", nsOGC,
		"xmlns:xsi", nsXSI,
	}
	if cfg.Prefix != "" && cfg.FeatureNS != "" {
		rootAttrs = append(rootAttrs, "xmlns:"+cfg.Prefix, cfg.FeatureNS)
	}
	w.start("wfs:Transaction", rootAttrs...)

	for _, f := range tx.Inserts {
		w.writeInsert(cfg, f)
	}
	for _, f := range tx.Updates {
		w.writeUpdate(cfg, f)
	}
	for _, f := range tx.Deletes {
		w.writeDelete(cfg, f)
	}

	w.end("wfs:Transaction")
	if w.err != nil {
		return w.err
	}
	return enc.Flush()
}

func (w *writer) writeInsert(cfg Config, f *feature.Feature) {
	typeName := cfg.TypeName()
	w.start("wfs:Insert")
	w.start(typeName)
	if f.Geometry != nil {
		name := qualify(cfg, cfg.geometryName())
		w.start(name)
		w.writeGeometry(f.Geometry, cfg.SRSName)
		w.end(name)
	}
	for _, key := range attributeNames(cfg, f) {
		v := f.Properties[key]
		if v == nil {
			continue
		}
		w.leaf(qualify(cfg, key), formatValue(v))
	}
	w.end(typeName)
	w.end("wfs:Insert")
}

func (w *writer) writeUpdate(cfg Config, f *feature.Feature) {
	w.start("wfs:Update", "typeName", cfg.TypeName())
	for _, key := range attributeNames(cfg, f) {
		w.start("wfs:Property")
		w.leaf("wfs:Name", key)
		if v := f.Properties[key]; v != nil {
			w.leaf("wfs:Value", formatValue(v))
		}
		w.end("wfs:Property")
	}
	if f.Geometry != nil {
		w.start("wfs:Property")
		w.leaf("wfs:Name", cfg.geometryName())
		w.start("wfs:Value")
		w.writeGeometry(f.Geometry, cfg.SRSName)
		w.end("wfs:Value")
		w.end("wfs:Property")
	}
	w.writeFilter(f.ID)
	w.end("wfs:Update")
}

func (w *writer) writeDelete(cfg Config, f *feature.Feature) {
	w.start("wfs:Delete", "typeName", cfg.TypeName())
	w.writeFilter(f.ID)
	w.end("wfs:Delete")
}

func (w *writer) writeFilter(fid string) {
	if fid == "" && w.err == nil {
		w.err = fmt.Errorf("feature without id cannot be filtered")
		return
	}
	w.start("ogc:Filter")
	w.start("ogc:FeatureId", "fid", fid)
	w.end("ogc:FeatureId")
	w.end("ogc:Filter")
}

// attributeNames returns the feature's attribute keys in a stable order,
// without the geometry property.
func attributeNames(cfg Config, f *feature.Feature) []string {
	geom := cfg.geometryName()
	keys := make([]string, 0, len(f.Properties))
	for k := range f.Properties {
		if k == geom {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func qualify(cfg Config, name string) string {
	if cfg.Prefix == "" {
		return name
	}
	return cfg.Prefix + ":" + name
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
