package xmlnode

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Parse reads an XML document into a Node tree rooted at the document's
// single top-level element. Unlike mmonterroca-docxgo's
// internal/reader.parseElement, this keeps whitespace-only CharData
// tokens as Text nodes instead of discarding them, and propagates
// xml:space="preserve" onto descendants as Node.PreserveSpace.
//
// Non-UTF-8 parts (produced by older localized Office builds) are decoded
// through charsetReader, which looks the declared label up directly in
// golang.org/x/text's HTML encoding index rather than leaving the
// lookup to charset.NewReaderLabel's own internal table.
func Parse(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("xmlnode: no root element found")
			}
			return nil, fmt.Errorf("xmlnode: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return parseElement(dec, start, false)
		}
	}
}

// charsetReader resolves an XML declaration's encoding label (e.g.
// "windows-1252", "shift_jis") to a transform.Transformer via
// golang.org/x/text's HTML encoding index, falling back to
// charset.NewReaderLabel for the handful of legacy labels htmlindex
// doesn't recognize.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return charset.NewReaderLabel(label, input)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func parseElement(dec *xml.Decoder, start xml.StartElement, parentPreserve bool) (*Node, error) {
	n := &Node{
		Kind:  Element,
		Name:  start.Name,
		Space: start.Name.Space,
	}
	n.PreserveSpace = parentPreserve
	for _, a := range start.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Name, Value: a.Value})
		if a.Name.Local == "space" && a.Value == "preserve" {
			n.PreserveSpace = true
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("xmlnode: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t, n.PreserveSpace)
			if err != nil {
				return nil, err
			}
			n.AppendChild(child)
		case xml.EndElement:
			if t.Name.Local == start.Name.Local && t.Name.Space == start.Name.Space {
				return n, nil
			}
		case xml.CharData:
			n.AppendChild(&Node{Kind: Text, CharData: string(t), PreserveSpace: n.PreserveSpace})
		}
	}
}
