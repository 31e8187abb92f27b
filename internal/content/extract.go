package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html/charset"
)

// ErrUnparseable marks a body that cannot be treated as an HTML document.
var ErrUnparseable = errors.New("document is not parseable as html")

var (
	h1Selector      = cascadia.MustCompile("h1")
	metaSelector    = cascadia.MustCompile("meta[name]")
	contentSelector = cascadia.MustCompile(":not(html, head, body)")
)

// Fields are the optional values recorded by a page check. A nil field means
// the element was not present.
type Fields struct {
	H1          *string
	Description *string
	Keywords    *string
}

// Parse decodes body to UTF-8 using contentType and any <meta charset>, then
// builds a document from it.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnparseable)
	}
	if bytes.IndexByte(body, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content", ErrUnparseable)
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: decode failed: %v", ErrUnparseable, err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse failed: %v", ErrUnparseable, err)
	}
	if isSkeleton(doc) {
		return nil, fmt.Errorf("%w: no content", ErrUnparseable)
	}
	return doc, nil
}

// ExtractFields reads h1, meta description and meta keywords from doc. It
// never fails; missing elements leave the field nil.
func ExtractFields(doc *goquery.Document) Fields {
	var fields Fields
	if doc == nil {
		return fields
	}

	if h1 := doc.FindMatcher(goquery.SingleMatcher(h1Selector)); h1.Length() > 0 {
		fields.H1 = ptr(strings.TrimSpace(h1.Text()))
	}

	var sawDescription, sawKeywords bool
	doc.FindMatcher(metaSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		switch {
		case name == "description" && !sawDescription:
			sawDescription = true
			fields.Description = attrPtr(s, "content")
		case name == "keywords" && !sawKeywords:
			sawKeywords = true
			fields.Keywords = attrPtr(s, "content")
		}
		return !(sawDescription && sawKeywords)
	})

	return fields
}

// Analyze is Parse followed by ExtractFields.
func Analyze(body []byte, contentType string) (Fields, error) {
	doc, err := Parse(body, contentType)
	if err != nil {
		return Fields{}, err
	}
	return ExtractFields(doc), nil
}

func attrPtr(s *goquery.Selection, attr string) *string {
	v, ok := s.Attr(attr)
	if !ok {
		return nil
	}
	return ptr(v)
}

// isSkeleton reports whether doc holds nothing but the html/head/body
// elements the parser adds on its own.
func isSkeleton(doc *goquery.Document) bool {
	if doc.FindMatcher(contentSelector).Length() > 0 {
		return false
	}
	return strings.TrimSpace(doc.Text()) == ""
}

func ptr(s string) *string {
	return &s
}
