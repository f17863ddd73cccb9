package opc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/xmlnode"
)

const packageRelsNS = "http://schemas.openxmlformats.org/package/2006/relationships"

// Relationship is a typed, id-keyed pointer from a part (or the package
// root) to another part or an external URI.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	External   bool
}

// Relationships is the ordered relationship set owned by one part (or,
// for the empty owner key, the package root).
type Relationships struct {
	Items []*Relationship
}

// ByID returns the relationship with the given ID, or nil.
func (r *Relationships) ByID(id string) *Relationship {
	if r == nil {
		return nil
	}
	for _, it := range r.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// GetRelationships returns the relationship set owned by partURI (use ""
// for the package root's .rels).
func (pkg *Package) GetRelationships(partURI string) []*Relationship {
	key := ""
	if partURI != "" {
		key = normalize(partURI)
	}
	rels := pkg.rels[key]
	if rels == nil {
		return nil
	}
	return rels.Items
}

// AddRelationship allocates the next unused rId<n> for partURI (scanning
// existing ids and returning max+1) and registers a new relationship.
// Use target as an internal package URI, or as an external URI with
// external=true.
func (pkg *Package) AddRelationship(partURI, relType, target string, external bool) string {
	key := ""
	if partURI != "" {
		key = normalize(partURI)
	}
	rels := pkg.rels[key]
	if rels == nil {
		rels = &Relationships{}
		pkg.rels[key] = rels
	}
	id := nextRelID(rels)
	rels.Items = append(rels.Items, &Relationship{
		ID:       id,
		Type:     relType,
		Target:   target,
		External: external,
	})
	return id
}

// nextRelID scans existing rId<n> values and returns the next unused one,
// max+1.
func nextRelID(rels *Relationships) string {
	max := 0
	for _, it := range rels.Items {
		n := strings.TrimPrefix(it.ID, "rId")
		if v, err := strconv.Atoi(n); err == nil && v > max {
			max = v
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

// loadRelationships parses a .rels part at uri, if present; an absent
// .rels part is not an error (a part with no relationships simply has
// none).
func (pkg *Package) loadRelationships(uri string) (*Relationships, error) {
	node, ok, err := pkg.GetPartAsXML(uri)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Relationships{}, nil
	}
	out := &Relationships{}
	for _, child := range node.ChildrenByLocal("Relationship") {
		id, _ := child.Get("Id")
		typ, _ := child.Get("Type")
		target, _ := child.Get("Target")
		mode, _ := child.Get("TargetMode")
		out.Items = append(out.Items, &Relationship{
			ID:       id,
			Type:     typ,
			Target:   target,
			External: strings.EqualFold(mode, "External"),
		})
	}
	return out, nil
}

// flushRelationships serializes every in-memory Relationships set back
// into its .rels part before Save writes the ZIP, in sorted owner order
// so newly created .rels parts are appended to the part order
// deterministically.
func (pkg *Package) flushRelationships() error {
	owners := make([]string, 0, len(pkg.rels))
	for owner := range pkg.rels {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		rels := pkg.rels[owner]
		uri := relsURIFor(owner)
		node := relationshipsToXML(rels)
		if err := pkg.SetPartXML(uri, node, ""); err != nil {
			return rlerrors.Wrap(err, rlerrors.Internal, "opc.flushRelationships")
		}
	}
	return nil
}

func relsURIFor(owner string) string {
	if owner == "" {
		return "/_rels/.rels"
	}
	dir := owner[:strings.LastIndex(owner, "/")+1]
	name := owner[strings.LastIndex(owner, "/")+1:]
	return dir + "_rels/" + name + ".rels"
}

func relationshipsToXML(rels *Relationships) *xmlnode.Node {
	root := xmlnode.NewElement("", "Relationships")
	root.Set("", "xmlns", packageRelsNS)
	for _, r := range rels.Items {
		item := xmlnode.NewElement("", "Relationship")
		item.Set("", "Id", r.ID)
		item.Set("", "Type", r.Type)
		item.Set("", "Target", r.Target)
		if r.External {
			item.Set("", "TargetMode", "External")
		}
		root.AppendChild(item)
	}
	return root
}
