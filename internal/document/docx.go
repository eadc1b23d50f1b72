package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const docxMainPart = "word/document.xml"

// readDocx returns the paragraph text of a .docx file, one paragraph per
// line. Empty paragraphs are kept as empty lines.
func readDocx(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer r.Close()

	var part *zip.File
	for _, f := range r.File {
		if f.Name == docxMainPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", ErrInvalidDocx
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxMainPart, err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

// WordprocessingML and markup-compatibility namespaces.
const (
	wordNS   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	compatNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// docxParagraphs walks WordprocessingML and collects the text of every <w:p>.
// Only <w:t> runs contribute text; <w:tab/> and <w:br/> become a tab and a
// newline. Paragraph and run properties are skipped, as is the fallback
// copy of alternate content. A paragraph nested in a text box is emitted on
// its own and does not disturb the paragraph around it.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		open       []*strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", docxMainPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == compatNS && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("failed to parse %s: %w", docxMainPart, err)
				}
				continue
			}
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "pPr", "rPr":
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("failed to parse %s: %w", docxMainPart, err)
				}
			case "p":
				open = append(open, &strings.Builder{})
			case "t":
				inText = len(open) > 0
			case "tab":
				if len(open) > 0 {
					open[len(open)-1].WriteByte('\t')
				}
			case "br", "cr":
				if len(open) > 0 {
					open[len(open)-1].WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				open[len(open)-1].Write(t)
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(open) > 0 {
					paragraphs = append(paragraphs, open[len(open)-1].String())
					open = open[:len(open)-1]
				}
			}
		}
	}

	return paragraphs, nil
}

// writeDocx writes content as a minimal WordprocessingML package.
// Blocks separated by a blank line become paragraphs; a block starting with
// '#' becomes a heading of that level (capped at 6).
func writeDocx(w io.Writer, content string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{docxMainPart, docxDocument(content)},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish docx: %w", err)
	}
	return nil
}

func docxDocument(content string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for _, block := range strings.Split(content, "\n\n") {
		style := ""
		text := block
		if strings.HasPrefix(block, "#") {
			level := len(block) - len(strings.TrimLeft(block, "#"))
			text = strings.TrimSpace(strings.TrimLeft(block, "# "))
			style = "Heading" + strconv.Itoa(min(level, 6))
		}

		b.WriteString("<w:p>")
		if style != "" {
			b.WriteString(`<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`)
		}
		b.WriteString("<w:r>")
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				b.WriteString("<w:br/>")
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			_ = xml.EscapeText(&b, []byte(line))
			b.WriteString("</w:t>")
		}
		b.WriteString("</w:r></w:p>")
	}

	b.WriteString("</w:body></w:document>")
	return b.String()
}

const docxContentTypes = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const docxRels = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`
