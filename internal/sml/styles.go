package sml

import (
	"strconv"
	"strings"

	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// styleTable is xl/styles.xml resolved into lookup tables, so resolve can
// turn a cellXfs index into a fully expanded CellFormatSignature with no
// further indirection.
type styleTable struct {
	numFmts map[int]string
	fonts   []fontInfo
	fills   []fillInfo
	borders []borderInfo
	xfs     []xfInfo
}

type fontInfo struct {
	Bold, Italic, Underline bool
	Name                    string
	Size                    float64
	Color                   string
}

type fillInfo struct {
	FgColor string
}

type borderInfo struct {
	Left, Right, Top, Bottom string
}

type xfInfo struct {
	NumFmtID int
	FontID   int
	FillID   int
	BorderID int
	HAlign   string
	VAlign   string
}

func loadStyles(pkg *opc.Package) (*styleTable, error) {
	st := &styleTable{numFmts: make(map[int]string)}
	root, ok, err := pkg.GetPartAsXML(stylesPartURI)
	if err != nil {
		return nil, err
	}
	if !ok {
		return st, nil
	}

	if nf := root.FirstChildByLocal("numFmts"); nf != nil {
		for _, n := range nf.ChildrenByLocal("numFmt") {
			idS, _ := n.Get("numFmtId")
			code, _ := n.Get("formatCode")
			id, _ := strconv.Atoi(idS)
			st.numFmts[id] = code
		}
	}

	if fonts := root.FirstChildByLocal("fonts"); fonts != nil {
		for _, f := range fonts.ChildrenByLocal("font") {
			fi := fontInfo{Size: 11}
			fi.Bold = f.FirstChildByLocal("b") != nil
			fi.Italic = f.FirstChildByLocal("i") != nil
			fi.Underline = f.FirstChildByLocal("u") != nil
			if sz := f.FirstChildByLocal("sz"); sz != nil {
				if v, ok := sz.Get("val"); ok {
					if parsed, err := strconv.ParseFloat(v, 64); err == nil {
						fi.Size = parsed
					}
				}
			}
			if name := f.FirstChildByLocal("name"); name != nil {
				fi.Name, _ = name.Get("val")
			}
			if color := f.FirstChildByLocal("color"); color != nil {
				fi.Color = colorOf(color)
			}
			st.fonts = append(st.fonts, fi)
		}
	}

	if fills := root.FirstChildByLocal("fills"); fills != nil {
		for _, f := range fills.ChildrenByLocal("fill") {
			var fg string
			if pf := f.FirstChildByLocal("patternFill"); pf != nil {
				if fgEl := pf.FirstChildByLocal("fgColor"); fgEl != nil {
					fg = colorOf(fgEl)
				}
			}
			st.fills = append(st.fills, fillInfo{FgColor: fg})
		}
	}

	if borders := root.FirstChildByLocal("borders"); borders != nil {
		for _, b := range borders.ChildrenByLocal("border") {
			st.borders = append(st.borders, borderInfo{
				Left:   edgeStyle(b, "left"),
				Right:  edgeStyle(b, "right"),
				Top:    edgeStyle(b, "top"),
				Bottom: edgeStyle(b, "bottom"),
			})
		}
	}

	if cellXfs := root.FirstChildByLocal("cellXfs"); cellXfs != nil {
		for _, xf := range cellXfs.ChildrenByLocal("xf") {
			info := xfInfo{}
			info.NumFmtID, _ = intAttr(xf, "numFmtId")
			info.FontID, _ = intAttr(xf, "fontId")
			info.FillID, _ = intAttr(xf, "fillId")
			info.BorderID, _ = intAttr(xf, "borderId")
			if align := xf.FirstChildByLocal("alignment"); align != nil {
				info.HAlign, _ = align.Get("horizontal")
				info.VAlign, _ = align.Get("vertical")
			}
			st.xfs = append(st.xfs, info)
		}
	}

	return st, nil
}

func intAttr(n *xmlnode.Node, local string) (int, bool) {
	v, ok := n.Get(local)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	return i, err == nil
}

func colorOf(n *xmlnode.Node) string {
	if rgb, ok := n.Get("rgb"); ok {
		return rgb
	}
	if theme, ok := n.Get("theme"); ok {
		return "theme:" + theme
	}
	return ""
}

func edgeStyle(border *xmlnode.Node, local string) string {
	edge := border.FirstChildByLocal(local)
	if edge == nil {
		return ""
	}
	style, _ := edge.Get("style")
	return style
}

// resolve expands cellXfs[idx] into a CellFormatSignature with every
// referenced property (number format, font traits, fill, borders,
// alignment) resolved — the built-in number formats 0-49 are hard-coded;
// unknown ids map to "General".
func (st *styleTable) resolve(idx int) CellFormatSignature {
	if idx < 0 || idx >= len(st.xfs) {
		return CellFormatSignature{NumberFormat: "General"}
	}
	xf := st.xfs[idx]

	format := CellFormatSignature{
		NumberFormat: st.numberFormat(xf.NumFmtID),
		HAlign:       xf.HAlign,
		VAlign:       xf.VAlign,
	}
	if xf.FontID >= 0 && xf.FontID < len(st.fonts) {
		f := st.fonts[xf.FontID]
		format.Bold, format.Italic, format.Underline = f.Bold, f.Italic, f.Underline
		format.FontName, format.FontSize, format.FontColor = f.Name, f.Size, f.Color
	}
	if xf.FillID >= 0 && xf.FillID < len(st.fills) {
		format.FillColor = st.fills[xf.FillID].FgColor
	}
	if xf.BorderID >= 0 && xf.BorderID < len(st.borders) {
		b := st.borders[xf.BorderID]
		var parts []string
		if b.Left != "" {
			parts = append(parts, "L:"+b.Left)
		}
		if b.Right != "" {
			parts = append(parts, "R:"+b.Right)
		}
		if b.Top != "" {
			parts = append(parts, "T:"+b.Top)
		}
		if b.Bottom != "" {
			parts = append(parts, "B:"+b.Bottom)
		}
		format.Border = strings.Join(parts, "|")
	}
	return format
}

func (st *styleTable) numberFormat(id int) string {
	if code, ok := st.numFmts[id]; ok {
		return code
	}
	if code, ok := builtinNumFmts[id]; ok {
		return code
	}
	return "General"
}

// builtinNumFmts is the ECMA-376 18.8.30 built-in number format table for
// ids 0-49; ids with no conventional meaning (reserved/unused slots) are
// simply absent and fall back to "General" in numberFormat above.
var builtinNumFmts = map[int]string{
	0:  "General",
	1:  "0",
	2:  "0.00",
	3:  "#,##0",
	4:  "#,##0.00",
	9:  "0%",
	10: "0.00%",
	11: "0.00E+00",
	12: "# ?/?",
	13: "# ??/??",
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
	37: "#,##0 ;(#,##0)",
	38: "#,##0 ;[Red](#,##0)",
	39: "#,##0.00;(#,##0.00)",
	40: "#,##0.00;[Red](#,##0.00)",
	45: "mm:ss",
	46: "[h]:mm:ss",
	47: "mmss.0",
	48: "##0.0E+0",
	49: "@",
}
