package pages

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// Locator names a page element and how to find it.
type Locator struct {
	Name  string
	Query string
	XPath bool
}

// CSS builds a CSS selector locator.
func CSS(name, query string) Locator {
	return Locator{Name: name, Query: query}
}

// XPath builds an XPath locator.
func XPath(name, query string) Locator {
	return Locator{Name: name, Query: query, XPath: true}
}

func (l Locator) by() chromedp.QueryOption {
	if l.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (l Locator) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Query)
}

// jsElement returns a JavaScript expression that evaluates to the first
// element matched by the locator, or null.
func (l Locator) jsElement() string {
	q, _ := json.Marshal(l.Query)
	if l.XPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q)
	}
	return fmt.Sprintf("document.querySelector(%s)", q)
}

// xpathLiteral quotes s for use inside an XPath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// containsAllWords builds an XPath predicate requiring every word of text.
func containsAllWords(text string) string {
	words := strings.Fields(text)
	conds := make([]string, 0, len(words))
	for _, w := range words {
		conds = append(conds, fmt.Sprintf("contains(., %s)", xpathLiteral(w)))
	}
	if len(conds) == 0 {
		return "true()"
	}
	return strings.Join(conds, " and ")
}
