// Package opc implements the Open Packaging Conventions façade every
// comparer consumes: opening a ZIP-based OOXML package, reading and
// writing named parts (as raw bytes or as parsed XML trees), and
// resolving/rewriting the relationships between them.
//
// The façade is deliberately narrow — a capability set of
// {Uri, ContentType, readBytes, writeBytes, Relationships} rather than a
// polymorphic part hierarchy. It is grounded on
// mmonterroca-docxgo/internal/reader.Package (normalized part lookup,
// content-type resolution) and internal/manager.RelationshipManager
// (relationship bookkeeping, rId allocation).
package opc

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/mohae/deepcopy"

	"github.com/oxmlredline/compare/internal/xmlio"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

// Part is one named resource inside the package: a URI, a content type,
// and its raw bytes.
type Part struct {
	URI         string
	ContentType string
	Data        []byte
}

// Package is a named collection of parts plus the package's root
// relationship set and every part's own relationship set. Package is the
// sole owner of its parts for the duration of one comparison; callers
// must Clone before mutating a Package they still need the original of.
type Package struct {
	parts           map[string]*Part // keyed by normalized URI
	order           []string         // insertion order, for deterministic ListParts
	rels            map[string]*Relationships // keyed by owning part's normalized URI; "" is the package root
	contentTypes    *ContentTypes
	normalizedIndex map[string]string // normalized -> canonical URI as stored
}

// Open reads a ZIP-based OOXML package from data.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "opc.Open")
	}

	pkg := &Package{
		parts:           make(map[string]*Part, len(zr.File)),
		rels:            make(map[string]*Relationships),
		normalizedIndex: make(map[string]string, len(zr.File)),
	}

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "opc.Open")
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, rlerrors.Wrap(err, rlerrors.MalformedPackage, "opc.Open")
		}

		uri := normalize(f.Name)
		pkg.parts[uri] = &Part{URI: uri, Data: data}
		pkg.order = append(pkg.order, uri)
		pkg.normalizedIndex[normalizeKey(uri)] = uri
	}

	ct, err := pkg.loadContentTypes()
	if err != nil {
		return nil, err
	}
	pkg.contentTypes = ct
	for uri, part := range pkg.parts {
		part.ContentType = pkg.contentTypeFor(uri)
	}

	root, err := pkg.loadRelationships("/_rels/.rels")
	if err != nil {
		return nil, err
	}
	pkg.rels[""] = root

	for _, uri := range pkg.order {
		if !strings.HasSuffix(uri, ".rels") {
			continue
		}
		owner := ownerOfRelsPart(uri)
		if owner == "" {
			continue
		}
		rels, err := pkg.loadRelationships(uri)
		if err != nil {
			return nil, err
		}
		pkg.rels[normalize(owner)] = rels
	}

	return pkg, nil
}

// Clone returns a deep copy of pkg. Part bytes are copied with append
// (reflection-based deep copy is wrong for large binary slices); the
// smaller relationship/content-type bookkeeping structures are copied
// with github.com/mohae/deepcopy, which is safe and convenient for their
// shape (nested maps/slices of small structs with no cyclic pointers).
func (pkg *Package) Clone() *Package {
	clone := &Package{
		parts:           make(map[string]*Part, len(pkg.parts)),
		order:           append([]string(nil), pkg.order...),
		rels:            make(map[string]*Relationships, len(pkg.rels)),
		normalizedIndex: deepcopy.Copy(pkg.normalizedIndex).(map[string]string),
	}
	for uri, p := range pkg.parts {
		clone.parts[uri] = &Part{
			URI:         p.URI,
			ContentType: p.ContentType,
			Data:        append([]byte(nil), p.Data...),
		}
	}
	for owner, r := range pkg.rels {
		clone.rels[owner] = deepcopy.Copy(r).(*Relationships)
	}
	clone.contentTypes = deepcopy.Copy(pkg.contentTypes).(*ContentTypes)
	return clone
}

// Save serializes the package back to a ZIP archive. Saving is atomic
// with respect to the caller's input: bytes are assembled entirely in
// memory and returned only on success, so a caller who keeps their
// original buffer around never observes a half-written package.
func (pkg *Package) Save() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := pkg.flushRelationships(); err != nil {
		return nil, err
	}
	if err := pkg.flushContentTypes(); err != nil {
		return nil, err
	}

	for _, uri := range pkg.sortedURIsForSave() {
		part := pkg.parts[uri]
		f, err := zw.Create(strings.TrimPrefix(uri, "/"))
		if err != nil {
			return nil, rlerrors.Wrap(err, rlerrors.Internal, "opc.Save")
		}
		if _, err := f.Write(part.Data); err != nil {
			return nil, rlerrors.Wrap(err, rlerrors.Internal, "opc.Save")
		}
	}

	if err := zw.Close(); err != nil {
		return nil, rlerrors.Wrap(err, rlerrors.Internal, "opc.Save")
	}
	return buf.Bytes(), nil
}

// sortedURIsForSave returns every stored part URI in a stable order:
// insertion order for parts seen at Open time, with any parts added
// afterward (e.g. the SML _DiffSummary sheet) appended in the order they
// were added. Determinism here is what keeps two identical comparisons
// byte-for-byte identical.
func (pkg *Package) sortedURIsForSave() []string {
	seen := make(map[string]bool, len(pkg.order))
	out := make([]string, 0, len(pkg.parts))
	for _, uri := range pkg.order {
		if _, ok := pkg.parts[uri]; ok && !seen[uri] {
			out = append(out, uri)
			seen[uri] = true
		}
	}
	var extra []string
	for uri := range pkg.parts {
		if !seen[uri] {
			extra = append(extra, uri)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// GetPart returns a part's raw bytes, or ok=false if it does not exist.
// Lookup is case-insensitive.
func (pkg *Package) GetPart(uri string) ([]byte, bool) {
	canon, ok := pkg.resolvePartURI(uri)
	if !ok {
		return nil, false
	}
	return pkg.parts[canon].Data, true
}

// GetPartAsXML parses a part as an XML tree. Returns ok=false if the part
// does not exist; returns a MalformedPackage error if it exists but fails
// to parse.
func (pkg *Package) GetPartAsXML(uri string) (*xmlnode.Node, bool, error) {
	data, ok := pkg.GetPart(uri)
	if !ok {
		return nil, false, nil
	}
	node, err := xmlnode.Parse(data)
	if err != nil {
		return nil, true, rlerrors.Wrap(err, rlerrors.MalformedPackage, "opc.GetPartAsXML "+uri)
	}
	return node, true, nil
}

// SetPart writes raw bytes for uri, creating the part if it does not
// already exist. If contentType is non-empty, a content-type Override is
// registered automatically (for new and existing parts alike) unless the
// extension's Default already gives that content type.
func (pkg *Package) SetPart(uri string, data []byte, contentType string) {
	canon := normalize(uri)
	if existing, ok := pkg.resolvePartURI(uri); ok {
		canon = existing
	} else {
		pkg.order = append(pkg.order, canon)
		pkg.normalizedIndex[normalizeKey(canon)] = canon
	}
	pkg.parts[canon] = &Part{URI: canon, Data: data, ContentType: contentType}
	if contentType != "" {
		pkg.registerContentTypeIfNeeded(canon, contentType)
	}
}

// SetPartXML serializes node and stores it via SetPart.
func (pkg *Package) SetPartXML(uri string, node *xmlnode.Node, contentType string) error {
	data, err := xmlio.Serialize(node)
	if err != nil {
		return rlerrors.Wrap(err, rlerrors.Internal, "opc.SetPartXML "+uri)
	}
	pkg.SetPart(uri, data, contentType)
	return nil
}

// ListParts returns every part URI currently in the package, in the
// stable order Save would write them.
func (pkg *Package) ListParts() []string {
	return pkg.sortedURIsForSave()
}

// resolvePartURI normalizes uri and finds its canonical stored form.
func (pkg *Package) resolvePartURI(uri string) (string, bool) {
	canon, ok := pkg.normalizedIndex[normalizeKey(uri)]
	return canon, ok
}

// normalize produces the canonical on-disk form of a part URI: a single
// leading slash, forward slashes throughout.
func normalize(uri string) string {
	uri = strings.ReplaceAll(uri, "\\", "/")
	uri = strings.TrimPrefix(uri, "/")
	return "/" + uri
}

// normalizeKey produces a case-insensitive lookup key.
func normalizeKey(uri string) string {
	return strings.ToLower(normalize(uri))
}

// Resolve collapses "." and ".." segments in target, relative to base
// (base is the URI of the part doing the referencing). Absolute targets
// (leading "/") are normalized as-is.
func Resolve(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return normalize(target)
	}
	baseDir := path.Dir(base)
	joined := path.Join(baseDir, target)
	return normalize(joined)
}

func ownerOfRelsPart(relsURI string) string {
	// ".../_rels/foo.xml.rels" describes "foo.xml" in the parent of _rels.
	dir := path.Dir(relsURI)
	base := path.Base(relsURI)
	if path.Base(dir) != "_rels" {
		return ""
	}
	name := strings.TrimSuffix(base, ".rels")
	return path.Join(path.Dir(dir), name)
}

