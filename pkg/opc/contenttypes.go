package opc

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

const contentTypesNS = "http://schemas.openxmlformats.org/package/2006/content-types"

// ContentTypes mirrors [Content_Types].xml: a set of Default entries
// (extension -> content type) and Override entries (exact part name ->
// content type, taking precedence over any Default).
type ContentTypes struct {
	Defaults  map[string]string // extension (no dot) -> content type
	Overrides map[string]string // normalized part URI -> content type
}

func (pkg *Package) loadContentTypes() (*ContentTypes, error) {
	node, ok, err := pkg.GetPartAsXML("/[Content_Types].xml")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rlerrors.New(rlerrors.MalformedPackage, "opc.loadContentTypes", "missing [Content_Types].xml")
	}
	ct := &ContentTypes{Defaults: map[string]string{}, Overrides: map[string]string{}}
	for _, child := range node.ChildrenByLocal("Default") {
		ext, _ := child.Get("Extension")
		typ, _ := child.Get("ContentType")
		ct.Defaults[strings.ToLower(ext)] = typ
	}
	for _, child := range node.ChildrenByLocal("Override") {
		name, _ := child.Get("PartName")
		typ, _ := child.Get("ContentType")
		ct.Overrides[normalizeKey(name)] = typ
	}
	return ct, nil
}

// contentTypeFor resolves the effective content type for a part, checking
// Overrides first (exact part name) and falling back to Defaults (by
// extension).
func (pkg *Package) contentTypeFor(uri string) string {
	if ct, ok := pkg.contentTypes.Overrides[normalizeKey(uri)]; ok {
		return ct
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(uri)), ".")
	if ext == "" {
		return ""
	}
	return pkg.contentTypes.Defaults[ext]
}

// registerContentTypeIfNeeded adds a content-type Override for uri when
// its extension has no matching Default, since adding a part whose
// extension lacks a Default requires an explicit Override.
func (pkg *Package) registerContentTypeIfNeeded(uri, contentType string) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(uri)), ".")
	if ext != "" {
		if def, ok := pkg.contentTypes.Defaults[ext]; ok && def == contentType {
			return
		}
	}
	pkg.contentTypes.Overrides[normalizeKey(uri)] = contentType
}

func (pkg *Package) flushContentTypes() error {
	root := xmlnode.NewElement("", "Types")
	root.Set("", "xmlns", contentTypesNS)
	for _, ext := range sortedKeys(pkg.contentTypes.Defaults) {
		d := xmlnode.NewElement("", "Default")
		d.Set("", "Extension", ext)
		d.Set("", "ContentType", pkg.contentTypes.Defaults[ext])
		root.AppendChild(d)
	}
	for _, name := range sortedKeys(pkg.contentTypes.Overrides) {
		o := xmlnode.NewElement("", "Override")
		o.Set("", "PartName", canonicalOverrideName(pkg, name))
		o.Set("", "ContentType", pkg.contentTypes.Overrides[name])
		root.AppendChild(o)
	}
	return pkg.SetPartXML("/[Content_Types].xml", root, "")
}

// canonicalOverrideName recovers the mixed-case URI for an override key
// (overrides are keyed by lowercase for lookup, but PartName must echo a
// real, case-preserved part path).
func canonicalOverrideName(pkg *Package, lowerKey string) string {
	if canon, ok := pkg.normalizedIndex[lowerKey]; ok {
		return canon
	}
	return lowerKey
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
