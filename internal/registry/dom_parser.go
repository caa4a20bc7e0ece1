package registry

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOMParser parses the registry table with a real HTML parser.
// Entities are decoded by the HTML tokenizer, so it is not limited to the Turkish table.
type DOMParser struct{}

func (DOMParser) Parse(html string) DeviceRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return DeviceRecord{}
	}

	pairs := make(map[string]string)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() != 2 {
			return
		}
		key := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if key == "" || value == "" {
			return
		}
		pairs[key] = value
	})
	return recordFromPairs(pairs)
}
