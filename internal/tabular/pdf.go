package tabular

import (
	"bytes"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// textBox is a single piece of text recovered from a PDF content stream,
// located by the lower-left corner of its bounding box, in PDF user-space
// units. pdfcpu exposes page content and resources but (unlike pdfminer)
// has no built-in notion of a laid-out text box; this is the small
// coordinate-recovery layer documented in DESIGN.md that builds one on top
// of pdfcpu's content-stream access.
type textBox struct {
	text   string
	x0, y0 float64
}

type pdfPage struct {
	boxes []textBox
}

// PDFReader gives coordinate-addressed access to the text boxes of a PDF,
// finding the box nearest a requested (x, y) within a configurable
// tolerance. Some suppliers' layouts drift slightly between issues;
// SetOffsetByElement compensates by anchoring on a known element.
type PDFReader struct {
	tolerance float64
	pages     []pdfPage
	offsetX   float64
	offsetY   float64
}

// NewPDFReader constructs a reader with the given default matching
// tolerance (PDF user-space units).
func NewPDFReader(tolerance float64) *PDFReader {
	return &PDFReader{tolerance: tolerance}
}

func (r *PDFReader) Load(src io.Reader) error {
	buf, err := io.ReadAll(src)
	if err != nil {
		return readErrorf(err, "reading pdf")
	}
	ctx, err := api.ReadContext(bytes.NewReader(buf), model.NewDefaultConfiguration())
	if err != nil {
		return readErrorf(err, "parsing pdf")
	}
	pageCount, err := api.PageCountFile2(bytes.NewReader(buf))
	if err != nil {
		pageCount = ctx.PageCount
	}
	pages := make([]pdfPage, pageCount)
	for i := 0; i < pageCount; i++ {
		content, err := api.PageContent(ctx, i+1)
		if err != nil {
			// A page with no extractable content stream just yields no
			// boxes; downstream Get calls will fail with FormatError,
			// which is the correct signal for an unexpectedly blank page.
			continue
		}
		pages[i] = pdfPage{boxes: extractTextBoxes(content)}
	}
	r.pages = pages
	return nil
}

func (r *PDFReader) IsLoaded() bool { return r.pages != nil }

func (r *PDFReader) page(pageNumber int) (*pdfPage, error) {
	if pageNumber < 1 || pageNumber > len(r.pages) {
		return nil, formatErrorf("no page %d: last page number is %d", pageNumber, len(r.pages))
	}
	return &r.pages[pageNumber-1], nil
}

func distance(box textBox, x, y float64) float64 {
	dx := box.x0 - x
	dy := box.y0 - y
	return math.Sqrt(dx*dx + dy*dy)
}

// findMatching returns the text boxes on the page whose text matches regex,
// sorted in increasing order of distance from (x, y).
func (r *PDFReader) findMatching(pageNumber int, y, x float64, regex *regexp.Regexp) ([]textBox, error) {
	p, err := r.page(pageNumber)
	if err != nil {
		return nil, err
	}
	var matches []textBox
	for _, b := range p.boxes {
		if regex.MatchString(strings.TrimSpace(b.text)) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return nil, formatErrorf("no text elements on page %d match %q", pageNumber, regex.String())
	}
	sort.Slice(matches, func(i, j int) bool {
		return distance(matches[i], x, y) < distance(matches[j], x, y)
	})
	return matches, nil
}

// SetOffsetByElement finds the first text box matching regex, and stores
// the delta between its actual position and (expectedX, expectedY) so every
// subsequent coordinate lookup is shifted by that delta. Used to adapt a
// parser written against one issue of a file to later issues whose layout
// has drifted slightly.
func (r *PDFReader) SetOffsetByElement(regex *regexp.Regexp, expectedX, expectedY float64) error {
	p, err := r.page(1)
	if err != nil {
		return err
	}
	for _, b := range p.boxes {
		if regex.MatchString(strings.TrimSpace(b.text)) {
			r.offsetX = b.x0 - expectedX
			r.offsetY = b.y0 - expectedY
			return nil
		}
	}
	return formatErrorf("no text elements on page %d match %q", 1, regex.String())
}

// Get returns the text of the box nearest (x, y) on the given page, within
// the reader's tolerance. expectedType is accepted for symmetry with the
// spreadsheet reader but ignored: PDF text boxes are always strings.
func (r *PDFReader) Get(pageNumber int, y, x float64, expectedType CellType) (string, error) {
	y += r.offsetY
	x += r.offsetX
	p, err := r.page(pageNumber)
	if err != nil {
		return "", err
	}
	if len(p.boxes) == 0 {
		return "", formatErrorf("no text elements on page %d", pageNumber)
	}
	closest := p.boxes[0]
	best := distance(closest, x, y)
	for _, b := range p.boxes[1:] {
		if d := distance(b, x, y); d < best {
			closest, best = b, d
		}
	}
	if best > r.tolerance {
		return "", formatErrorf(
			"no text elements within %v of (%v,%v) on page %d: closest is %q at (%v,%v)",
			r.tolerance, x, y, pageNumber, strings.TrimSpace(closest.text), closest.x0, closest.y0)
	}
	return strings.TrimSpace(closest.text), nil
}

// GetMatches finds the text box nearest (x, y) (optionally within a
// tighter tolerance than the reader default) whose text matches regex, and
// converts its capture groups.
func (r *PDFReader) GetMatches(pageNumber int, y, x float64, regex *regexp.Regexp, tolerance *float64, converters ...Converter) ([]any, error) {
	y += r.offsetY
	x += r.offsetX
	matches, err := r.findMatching(pageNumber, y, x, regex)
	if err != nil {
		return nil, err
	}
	closest := matches[0]
	tol := r.tolerance
	if tolerance != nil {
		tol = *tolerance
	}
	if distance(closest, x, y) > tol {
		return nil, formatErrorf(
			"no text elements within %v of (%v,%v) on page %d: closest is %q at (%v,%v)",
			tol, x, y, pageNumber, strings.TrimSpace(closest.text), closest.x0, closest.y0)
	}
	return ValidateAndConvertText(regex, strings.TrimSpace(closest.text), converters...)
}

// Element is a single matched text box's position and text, exposed so
// callers can distinguish two boxes with identical text (e.g. picking
// three distinct nearby boxes even if two happen to hold the same number).
type Element struct {
	Text string
	X, Y float64
}

// FindMatchingElements exposes findMatching for parsers that need to walk
// several candidate boxes themselves (e.g. to pick N distinct nearby boxes
// rather than just the closest one), sorted nearest-first.
func (r *PDFReader) FindMatchingElements(pageNumber int, y, x float64, regex *regexp.Regexp) ([]Element, error) {
	y += r.offsetY
	x += r.offsetX
	matches, err := r.findMatching(pageNumber, y, x, regex)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(matches))
	for i, m := range matches {
		out[i] = Element{Text: strings.TrimSpace(m.text), X: m.x0, Y: m.y0}
	}
	return out, nil
}

// extractTextBoxes walks a PDF content stream's Tj/TJ text-showing
// operators together with the preceding Td/TD/Tm positioning operators to
// recover (x, y, text) boxes. This is a deliberately narrow reading of the
// content-stream grammar: matrix files use simple, single-line text runs,
// not the full generality of PDF text layout (rotation, vertical writing,
// kerning arrays beyond plain string runs).
func extractTextBoxes(content []byte) []textBox {
	var boxes []textBox
	var curX, curY float64
	tokens := tokenizeContentStream(content)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.op {
		case "Td", "TD", "Tm":
			if len(tok.operands) >= 2 {
				x, errX := strconv.ParseFloat(tok.operands[len(tok.operands)-2], 64)
				y, errY := strconv.ParseFloat(tok.operands[len(tok.operands)-1], 64)
				if errX == nil && errY == nil {
					if tok.op == "Tm" {
						curX, curY = x, y
					} else {
						curX += x
						curY += y
					}
				}
			}
		case "Tj":
			if len(tok.strs) == 1 {
				boxes = append(boxes, textBox{text: tok.strs[0], x0: curX, y0: curY})
			}
		case "TJ":
			var sb strings.Builder
			for _, s := range tok.strs {
				sb.WriteString(s)
			}
			if sb.Len() > 0 {
				boxes = append(boxes, textBox{text: sb.String(), x0: curX, y0: curY})
			}
		}
	}
	return boxes
}

type contentToken struct {
	op       string
	operands []string
	strs     []string
}

// tokenizeContentStream is a minimal scanner over the PDF content-stream
// grammar: numbers, literal strings "(...)", array literals "[...]" (for
// TJ), and bare operator keywords. It is not a general PostScript-style
// interpreter; it only tracks enough state (current operands/strings since
// the last operator) to resolve the operators extractTextBoxes cares about.
func tokenizeContentStream(content []byte) []contentToken {
	var tokens []contentToken
	var operands []string
	var strs []string

	i := 0
	n := len(content)
	for i < n {
		c := content[i]
		switch {
		case c == ' ' || c == '\n' || c == '\r' || c == '\t':
			i++
		case c == '(':
			j := i + 1
			depth := 1
			var sb strings.Builder
			for j < n && depth > 0 {
				if content[j] == '\\' && j+1 < n {
					sb.WriteByte(content[j+1])
					j += 2
					continue
				}
				if content[j] == '(' {
					depth++
				} else if content[j] == ')' {
					depth--
					if depth == 0 {
						break
					}
				}
				sb.WriteByte(content[j])
				j++
			}
			strs = append(strs, sb.String())
			i = j + 1
		case c == '[' || c == ']' || c == '<' || c == '>' || c == '/':
			i++
		case c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j := i
			for j < n && (content[j] == '-' || content[j] == '.' || (content[j] >= '0' && content[j] <= '9')) {
				j++
			}
			operands = append(operands, string(content[i:j]))
			i = j
		default:
			j := i
			for j < n && isOperatorByte(content[j]) {
				j++
			}
			if j > i {
				op := string(content[i:j])
				tokens = append(tokens, contentToken{op: op, operands: operands, strs: strs})
				operands, strs = nil, nil
				i = j
			} else {
				i++
			}
		}
	}
	return tokens
}

func isOperatorByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '*' || b == '\''
}
