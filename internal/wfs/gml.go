package wfs

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Namespaces used in transaction documents.
const (
	nsWFS = "http://www.opengis.net/wfs"
	nsGML = "http://www.opengis.net/gml"
	nsOGC = "http://www.opengis.net/ogc"
	nsXSI = "http://www.w3.org/2001/XMLSchema-instance"
)

// writer emits prefixed element names literally; encoding/xml would
// otherwise invent its own prefixes for namespaced names.
type writer struct {
	enc *xml.Encoder
	err error
}

func (w *writer) start(name string, attrs ...string) {
	if w.err != nil {
		return
	}
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	w.err = w.enc.EncodeToken(el)
}

func (w *writer) end(name string) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) text(s string) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.CharData(s))
}

func (w *writer) leaf(name, value string, attrs ...string) {
	w.start(name, attrs...)
	w.text(value)
	w.end(name)
}

// writeGeometry encodes g as GML 3.1.1. Multi-geometries use the
// MultiCurve/MultiSurface forms.
func (w *writer) writeGeometry(g orb.Geometry, srsName string) {
	var attrs []string
	if srsName != "" {
		attrs = []string{"srsName", srsName}
	}

	switch geom := g.(type) {
	case orb.Point:
		w.start("gml:Point", attrs...)
		w.leaf("gml:pos", posList([]orb.Point{geom}))
		w.end("gml:Point")

	case orb.MultiPoint:
		w.start("gml:MultiPoint", attrs...)
		for _, p := range geom {
			w.start("gml:pointMember")
			w.writeGeometry(p, "")
			w.end("gml:pointMember")
		}
		w.end("gml:MultiPoint")

	case orb.LineString:
		w.start("gml:LineString", attrs...)
		w.leaf("gml:posList", posList(geom))
		w.end("gml:LineString")

	case orb.MultiLineString:
		w.start("gml:MultiCurve", attrs...)
		for _, ls := range geom {
			w.start("gml:curveMember")
			w.writeGeometry(ls, "")
			w.end("gml:curveMember")
		}
		w.end("gml:MultiCurve")

	case orb.Ring:
		w.writeGeometry(orb.Polygon{geom}, srsName)

	case orb.Polygon:
		w.start("gml:Polygon", attrs...)
		for i, ring := range geom {
			boundary := "gml:exterior"
			if i > 0 {
				boundary = "gml:interior"
			}
			w.start(boundary)
			w.start("gml:LinearRing")
			w.leaf("gml:posList", posList(ring))
			w.end("gml:LinearRing")
			w.end(boundary)
		}
		w.end("gml:Polygon")

	case orb.MultiPolygon:
		w.start("gml:MultiSurface", attrs...)
		for _, p := range geom {
			w.start("gml:surfaceMember")
			w.writeGeometry(p, "")
			w.end("gml:surfaceMember")
		}
		w.end("gml:MultiSurface")

	case orb.Bound:
		w.writeGeometry(geom.ToPolygon(), srsName)

	case orb.Collection:
		w.start("gml:MultiGeometry", attrs...)
		for _, member := range geom {
			w.start("gml:geometryMember")
			w.writeGeometry(member, "")
			w.end("gml:geometryMember")
		}
		w.end("gml:MultiGeometry")

	default:
		if w.err == nil {
			w.err = fmt.Errorf("unsupported geometry %T", g)
		}
	}
}

func posList[P ~[]orb.Point](pts P) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(p[0], 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p[1], 'f', -1, 64))
	}
	return b.String()
}
