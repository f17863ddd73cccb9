package pml

import (
	"sort"
	"strconv"
	"strings"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// overlayIDBase keeps generated overlay shape ids well clear of any id a
// real author's shape might carry.
const overlayIDBase = 900000

// Render clones right, adds labeled overlay shapes near every changed
// shape's position, optionally annotates notes slides with a bulleted
// change list, and optionally appends a summary slide.
func Render(right *opc.Package, rightSig *PresentationSignature, shapeChanges []ShapeChange, cs *changeset.ChangeSet, st settings.Settings) ([]byte, error) {
	out := right.Clone()

	bySlide := make(map[int][]ShapeChange)
	for _, c := range shapeChanges {
		bySlide[c.SlideIndex] = append(bySlide[c.SlideIndex], c)
	}

	for idx, changes := range bySlide {
		if idx < 0 || idx >= len(rightSig.Slides) {
			continue
		}
		target := rightSig.Slides[idx].Target
		if err := addOverlays(out, target, changes, st); err != nil {
			return nil, err
		}
		if st.AddNotesAnnotations {
			if err := annotateNotes(out, target, changes); err != nil {
				return nil, err
			}
		}
	}

	if st.AddSummarySlide {
		if err := appendSummarySlide(out, cs); err != nil {
			return nil, err
		}
	}

	return out.Save()
}

func addOverlays(pkg *opc.Package, slideTarget string, changes []ShapeChange, st settings.Settings) error {
	root, ok, err := pkg.GetPartAsXML(slideTarget)
	if err != nil {
		return err
	}
	if !ok {
		return rlerrors.New(rlerrors.MalformedPackage, "pml.Render", "missing slide part %s", slideTarget)
	}
	cSld := root.FirstChildByLocal("cSld")
	if cSld == nil {
		return rlerrors.New(rlerrors.MalformedPackage, "pml.Render", "slide %s has no cSld", slideTarget)
	}
	spTree := cSld.FirstChildByLocal("spTree")
	if spTree == nil {
		return rlerrors.New(rlerrors.MalformedPackage, "pml.Render", "slide %s has no spTree", slideTarget)
	}

	for i, c := range changes {
		shape := c.Right
		if shape == nil {
			shape = c.Left
		}
		if shape == nil {
			continue
		}
		color := colorForKinds(c.Kinds, st)
		label := labelForKinds(c.Kinds)
		spTree.AppendChild(buildOverlayShape(overlayIDBase+i, shape.X, shape.Y, shape.CX, shape.CY, color, label))
	}

	return pkg.SetPartXML(slideTarget, root, "")
}

func colorForKinds(kinds []changeset.Kind, st settings.Settings) string {
	for _, k := range kinds {
		switch k {
		case changeset.KindShapeAdded:
			return st.InsertedColor
		case changeset.KindShapeDeleted:
			return st.DeletedColor
		case changeset.KindTextFormattingChanged:
			return st.FormattingColor
		case changeset.KindShapeMoved, changeset.KindShapeResized, changeset.KindShapeRotated, changeset.KindShapeZOrderChanged:
			return st.MovedColor
		}
	}
	return st.ModifiedColor
}

func labelForKinds(kinds []changeset.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// buildOverlayShape constructs an outlined, unfilled rectangle the same
// size as the changed shape's bounding box, carrying a text label of what
// changed — an annotation layer, not a content edit.
func buildOverlayShape(id int, x, y, cx, cy int64, color, label string) *xmlnode.Node {
	sp := xmlnode.NewElement(pNS, "sp")

	nvSpPr := xmlnode.NewElement(pNS, "nvSpPr")
	cNvPr := xmlnode.NewElement(pNS, "cNvPr")
	cNvPr.Set("", "id", strconv.Itoa(id))
	cNvPr.Set("", "name", "RedlineOverlay"+strconv.Itoa(id))
	nvSpPr.AppendChild(cNvPr)
	nvSpPr.AppendChild(xmlnode.NewElement(pNS, "cNvSpPr"))
	nvSpPr.AppendChild(xmlnode.NewElement(pNS, "nvPr"))
	sp.AppendChild(nvSpPr)

	spPr := xmlnode.NewElement(pNS, "spPr")
	xfrm := xmlnode.NewElement(aNS, "xfrm")
	off := xmlnode.NewElement(aNS, "off")
	off.Set("", "x", strconv.FormatInt(x, 10))
	off.Set("", "y", strconv.FormatInt(y, 10))
	ext := xmlnode.NewElement(aNS, "ext")
	if cx == 0 {
		cx = 914400
	}
	if cy == 0 {
		cy = 914400
	}
	ext.Set("", "cx", strconv.FormatInt(cx, 10))
	ext.Set("", "cy", strconv.FormatInt(cy, 10))
	xfrm.AppendChild(off)
	xfrm.AppendChild(ext)
	spPr.AppendChild(xfrm)

	geom := xmlnode.NewElement(aNS, "prstGeom")
	geom.Set("", "prst", "rect")
	geom.AppendChild(xmlnode.NewElement(aNS, "avLst"))
	spPr.AppendChild(geom)
	spPr.AppendChild(xmlnode.NewElement(aNS, "noFill"))

	ln := xmlnode.NewElement(aNS, "ln")
	ln.Set("", "w", "38100")
	lnFill := xmlnode.NewElement(aNS, "solidFill")
	lnFill.AppendChild(srgbClr(color))
	ln.AppendChild(lnFill)
	spPr.AppendChild(ln)
	sp.AppendChild(spPr)

	txBody := xmlnode.NewElement(pNS, "txBody")
	txBody.AppendChild(xmlnode.NewElement(aNS, "bodyPr"))
	txBody.AppendChild(xmlnode.NewElement(aNS, "lstStyle"))
	p := xmlnode.NewElement(aNS, "p")
	r := xmlnode.NewElement(aNS, "r")
	rPr := xmlnode.NewElement(aNS, "rPr")
	rPr.Set("", "sz", "900")
	solidFill := xmlnode.NewElement(aNS, "solidFill")
	solidFill.AppendChild(srgbClr(color))
	rPr.AppendChild(solidFill)
	r.AppendChild(rPr)
	t := xmlnode.NewElement(aNS, "t")
	t.AppendChild(xmlnode.NewText(label))
	r.AppendChild(t)
	p.AppendChild(r)
	txBody.AppendChild(p)
	sp.AppendChild(txBody)

	return sp
}

func srgbClr(hex string) *xmlnode.Node {
	clr := xmlnode.NewElement(aNS, "srgbClr")
	clr.Set("", "val", strings.TrimPrefix(hex, "#"))
	return clr
}

// annotateNotes appends a bulleted change-description list to slideTarget's
// notes slide, creating the notes part (and its content-type override and
// slide→notes relationship) if none exists yet.
func annotateNotes(pkg *opc.Package, slideTarget string, changes []ShapeChange) error {
	var notesTarget string
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.Type == notesSlideRelType {
			notesTarget = opc.Resolve(slideTarget, r.Target)
		}
	}

	var notesRoot *xmlnode.Node
	if notesTarget != "" {
		root, ok, err := pkg.GetPartAsXML(notesTarget)
		if err != nil {
			return err
		}
		if ok {
			notesRoot = root
		}
	}
	if notesRoot == nil {
		notesTarget = notesTargetFor(slideTarget)
		notesRoot = newNotesSlide()
	}

	spTree := xmlnode.Find(notesRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "spTree"
	})
	if spTree == nil {
		return rlerrors.New(rlerrors.MalformedPackage, "pml.Render", "notes slide %s has no spTree", notesTarget)
	}

	body := xmlnode.NewElement(pNS, "sp")
	nvSpPr := xmlnode.NewElement(pNS, "nvSpPr")
	cNvPr := xmlnode.NewElement(pNS, "cNvPr")
	cNvPr.Set("", "id", strconv.Itoa(overlayIDBase+1))
	cNvPr.Set("", "name", "RedlineNotes")
	nvSpPr.AppendChild(cNvPr)
	nvSpPr.AppendChild(xmlnode.NewElement(pNS, "cNvSpPr"))
	ph := xmlnode.NewElement(pNS, "nvPr")
	nvSpPr.AppendChild(ph)
	body.AppendChild(nvSpPr)
	body.AppendChild(xmlnode.NewElement(pNS, "spPr"))

	txBody := xmlnode.NewElement(pNS, "txBody")
	txBody.AppendChild(xmlnode.NewElement(aNS, "bodyPr"))
	txBody.AppendChild(xmlnode.NewElement(aNS, "lstStyle"))
	for _, c := range changes {
		p := xmlnode.NewElement(aNS, "p")
		r := xmlnode.NewElement(aNS, "r")
		t := xmlnode.NewElement(aNS, "t")
		t.AppendChild(xmlnode.NewText("• " + changeDescription(c)))
		r.AppendChild(t)
		p.AppendChild(r)
		txBody.AppendChild(p)
	}
	body.AppendChild(txBody)
	spTree.AppendChild(body)

	if err := pkg.SetPartXML(notesTarget, notesRoot, notesSlideContentType); err != nil {
		return err
	}

	hasRel := false
	for _, r := range pkg.GetRelationships(slideTarget) {
		if r.Type == notesSlideRelType {
			hasRel = true
		}
	}
	if !hasRel {
		pkg.AddRelationship(slideTarget, notesSlideRelType, notesTarget, false)
	}
	return nil
}

func changeDescription(c ShapeChange) string {
	name := ""
	if c.Right != nil {
		name = c.Right.Name
	} else if c.Left != nil {
		name = c.Left.Name
	}
	return name + ": " + labelForKinds(c.Kinds)
}

func notesTargetFor(slideTarget string) string {
	name := slideTarget
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return "/ppt/notesSlides/notes" + name
}

func newNotesSlide() *xmlnode.Node {
	root := xmlnode.NewElement(pNS, "notes")
	cSld := xmlnode.NewElement(pNS, "cSld")
	spTree := xmlnode.NewElement(pNS, "spTree")
	nvGrpSpPr := xmlnode.NewElement(pNS, "nvGrpSpPr")
	nvGrpSpPr.AppendChild(xmlnode.NewElement(pNS, "cNvPr"))
	spTree.AppendChild(nvGrpSpPr)
	spTree.AppendChild(xmlnode.NewElement(pNS, "grpSpPr"))
	cSld.AppendChild(spTree)
	root.AppendChild(cSld)
	return root
}

// appendSummarySlide builds a new slide listing aggregate change counts,
// wires its relationship and sldIdLst entry into the presentation, and
// registers its content-type override.
func appendSummarySlide(pkg *opc.Package, cs *changeset.ChangeSet) error {
	presRoot, ok, err := pkg.GetPartAsXML(presentationPartURI)
	if err != nil {
		return err
	}
	if !ok {
		return rlerrors.New(rlerrors.MalformedPackage, "pml.Render", "missing %s", presentationPartURI)
	}

	const summaryURI = "/ppt/slides/_redlineSummary.xml"
	slideRoot := buildSummarySlide(cs)
	if err := pkg.SetPartXML(summaryURI, slideRoot, slideContentType); err != nil {
		return err
	}
	rid := pkg.AddRelationship(presentationPartURI, slideRelType, summaryURI, false)

	idLst := xmlnode.Find(presRoot, func(n *xmlnode.Node) bool {
		return n.Kind == xmlnode.Element && n.Local() == "sldIdLst"
	})
	if idLst == nil {
		idLst = xmlnode.NewElement(pNS, "sldIdLst")
		presRoot.AppendChild(idLst)
	}
	maxID := 255
	for _, sld := range idLst.ChildrenByLocal("sldId") {
		if v, ok := sld.Get("id"); ok {
			if n, err := strconv.Atoi(v); err == nil && n > maxID {
				maxID = n
			}
		}
	}
	newSld := xmlnode.NewElement(pNS, "sldId")
	newSld.Set("", "id", strconv.Itoa(maxID+1))
	newSld.Set(relN, "id", rid)
	idLst.AppendChild(newSld)

	return pkg.SetPartXML(presentationPartURI, presRoot, "")
}

func buildSummarySlide(cs *changeset.ChangeSet) *xmlnode.Node {
	root := xmlnode.NewElement(pNS, "sld")
	cSld := xmlnode.NewElement(pNS, "cSld")
	spTree := xmlnode.NewElement(pNS, "spTree")
	nvGrpSpPr := xmlnode.NewElement(pNS, "nvGrpSpPr")
	nvGrpSpPr.AppendChild(xmlnode.NewElement(pNS, "cNvPr"))
	spTree.AppendChild(nvGrpSpPr)
	spTree.AppendChild(xmlnode.NewElement(pNS, "grpSpPr"))

	title := xmlnode.NewElement(pNS, "sp")
	nvSpPr := xmlnode.NewElement(pNS, "nvSpPr")
	cNvPr := xmlnode.NewElement(pNS, "cNvPr")
	cNvPr.Set("", "id", "2")
	cNvPr.Set("", "name", "Title")
	nvSpPr.AppendChild(cNvPr)
	nvSpPr.AppendChild(xmlnode.NewElement(pNS, "cNvSpPr"))
	nvPr := xmlnode.NewElement(pNS, "nvPr")
	ph := xmlnode.NewElement(pNS, "ph")
	ph.Set("", "type", "title")
	nvPr.AppendChild(ph)
	nvSpPr.AppendChild(nvPr)
	title.AppendChild(nvSpPr)
	title.AppendChild(xmlnode.NewElement(pNS, "spPr"))

	txBody := xmlnode.NewElement(pNS, "txBody")
	txBody.AppendChild(xmlnode.NewElement(aNS, "bodyPr"))
	txBody.AppendChild(xmlnode.NewElement(aNS, "lstStyle"))

	titleP := xmlnode.NewElement(aNS, "p")
	titleR := xmlnode.NewElement(aNS, "r")
	titleT := xmlnode.NewElement(aNS, "t")
	titleT.AppendChild(xmlnode.NewText("Redline Summary"))
	titleR.AppendChild(titleT)
	titleP.AppendChild(titleR)
	txBody.AppendChild(titleP)

	counts := cs.CountByKind()
	var kinds []string
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		p := xmlnode.NewElement(aNS, "p")
		r := xmlnode.NewElement(aNS, "r")
		t := xmlnode.NewElement(aNS, "t")
		t.AppendChild(xmlnode.NewText(k + ": " + strconv.Itoa(counts[changeset.Kind(k)])))
		r.AppendChild(t)
		p.AppendChild(r)
		txBody.AppendChild(p)
	}
	title.AppendChild(txBody)
	spTree.AppendChild(title)

	cSld.AppendChild(spTree)
	root.AppendChild(cSld)
	return root
}
