// Command redlinectl is a thin CLI front-end over the redline comparer:
// inspect a single package (info, list-parts, extract-text) or diff a
// pair of them (compare). It exists purely as an operator convenience;
// all real logic lives in the redline package and its comparers.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/oxmlredline/compare/changeset"
	"github.com/oxmlredline/compare/pkg/opc"
	"github.com/oxmlredline/compare/pkg/rlerrors"
	"github.com/oxmlredline/compare/pkg/settings"
	"github.com/oxmlredline/compare/pkg/xmlnode"
	"github.com/oxmlredline/compare/redline"
)

const (
	exitOK             = 0
	exitInvalidInput   = 1
	exitRuntimeFailure = 2
	exitCancelled      = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitInvalidInput
	}

	switch args[0] {
	case "info":
		return cmdInfo(args[1:])
	case "extract-text":
		return cmdExtractText(args[1:])
	case "list-parts":
		return cmdListParts(args[1:])
	case "compare":
		return cmdCompare(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "redlinectl: unknown command %q\n", args[0])
		usage()
		return exitInvalidInput
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: redlinectl <info|extract-text|list-parts> <file> | redlinectl compare <a> <b> [out]")
}

func cmdInfo(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: redlinectl info <file>")
		return exitInvalidInput
	}
	pkg, code := openPackage(args[0])
	if pkg == nil {
		return code
	}
	kind := redline.DetectKind(pkg)
	fmt.Printf("file: %s\n", args[0])
	fmt.Printf("kind: %s\n", kindName(kind))
	fmt.Printf("parts: %d\n", len(pkg.ListParts()))
	return exitOK
}

func cmdListParts(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: redlinectl list-parts <file>")
		return exitInvalidInput
	}
	pkg, code := openPackage(args[0])
	if pkg == nil {
		return code
	}
	parts := append([]string(nil), pkg.ListParts()...)
	sort.Strings(parts)
	for _, p := range parts {
		fmt.Println(p)
	}
	return exitOK
}

func cmdExtractText(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: redlinectl extract-text <file>")
		return exitInvalidInput
	}
	pkg, code := openPackage(args[0])
	if pkg == nil {
		return code
	}
	text, err := extractText(pkg, redline.DetectKind(pkg))
	if err != nil {
		return reportError(err)
	}
	fmt.Println(text)
	return exitOK
}

func cmdCompare(args []string) int {
	if len(args) != 2 && len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: redlinectl compare <a> <b> [out]")
		return exitInvalidInput
	}
	a, errA := os.ReadFile(args[0])
	b, errB := os.ReadFile(args[1])
	if errA != nil {
		fmt.Fprintf(os.Stderr, "redlinectl: %v\n", errA)
		return exitInvalidInput
	}
	if errB != nil {
		fmt.Fprintf(os.Stderr, "redlinectl: %v\n", errB)
		return exitInvalidInput
	}

	out, cs, err := redline.Compare(context.Background(), a, b, settings.Defaults())
	if err != nil {
		return reportError(err)
	}

	if len(args) == 3 {
		if err := os.WriteFile(args[2], out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "redlinectl: %v\n", err)
			return exitRuntimeFailure
		}
	}
	printChangeSummary(cs)
	return exitOK
}

func openPackage(path string) (*opc.Package, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redlinectl: %v\n", err)
		return nil, exitInvalidInput
	}
	pkg, err := opc.Open(data)
	if err != nil {
		return nil, reportError(err)
	}
	return pkg, exitOK
}

func reportError(err error) int {
	fmt.Fprintf(os.Stderr, "redlinectl: %v\n", err)
	switch rlerrors.KindOf(err) {
	case rlerrors.Cancelled:
		return exitCancelled
	case rlerrors.MalformedPackage, rlerrors.UnsupportedContent, rlerrors.InvalidSetting:
		return exitInvalidInput
	default:
		return exitRuntimeFailure
	}
}

func kindName(k redline.DocumentKind) string {
	switch k {
	case redline.KindWordprocessing:
		return "wordprocessing"
	case redline.KindSpreadsheet:
		return "spreadsheet"
	case redline.KindPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

func printChangeSummary(cs *changeset.ChangeSet) {
	if cs.IsEmpty() {
		fmt.Println("no changes")
		return
	}
	counts := cs.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("%s: %d\n", k, counts[changeset.Kind(k)])
	}
	for _, w := range cs.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}
}

// extractText concatenates the text elements of a package's content,
// using the element name that carries text in each OOXML markup language:
// w:t in the WordprocessingML main document, a:t in each PresentationML
// slide part, and inline-string <t> elements in each SpreadsheetML
// worksheet part. Shared-string values and <v> cell values are not
// included.
func extractText(pkg *opc.Package, kind redline.DocumentKind) (string, error) {
	var mainPart string
	switch kind {
	case redline.KindWordprocessing:
		mainPart = "/word/document.xml"
	case redline.KindPresentation:
		mainPart = "/ppt/presentation.xml"
	case redline.KindSpreadsheet:
		mainPart = "/xl/workbook.xml"
	default:
		return "", rlerrors.New(rlerrors.UnsupportedContent, "redlinectl.extractText", "package is not a recognized OOXML document")
	}

	root, ok, err := pkg.GetPartAsXML(mainPart)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", rlerrors.New(rlerrors.MalformedPackage, "redlinectl.extractText", "missing %s", mainPart)
	}

	var b strings.Builder
	switch kind {
	case redline.KindSpreadsheet:
		for _, uri := range pkg.ListParts() {
			if !strings.Contains(uri, "/xl/worksheets/") {
				continue
			}
			sheet, ok, err := pkg.GetPartAsXML(uri)
			if err != nil || !ok {
				continue
			}
			appendRunText(&b, sheet)
		}
	case redline.KindPresentation:
		for _, uri := range pkg.ListParts() {
			if !strings.Contains(uri, "/ppt/slides/slide") || !strings.HasSuffix(uri, ".xml") {
				continue
			}
			slide, ok, err := pkg.GetPartAsXML(uri)
			if err != nil || !ok {
				continue
			}
			appendRunText(&b, slide)
		}
	default:
		appendRunText(&b, root)
	}
	return strings.TrimSpace(b.String()), nil
}

func appendRunText(b *strings.Builder, n *xmlnode.Node) {
	xmlnode.Walk(n, func(child *xmlnode.Node) bool {
		if child.Local() == "t" {
			b.WriteString(child.Text())
			b.WriteString(" ")
		}
		return true
	})
}
