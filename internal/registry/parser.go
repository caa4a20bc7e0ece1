package registry

import (
	"regexp"
	"strings"
)

// Parser turns a registry page into a DeviceRecord.
// Implementations never fail: malformed input yields fewer populated fields.
type Parser interface {
	Parse(html string) DeviceRecord
}

// NewParser returns the parser registered under name, falling back to the regex scanner.
func NewParser(name string) Parser {
	if strings.EqualFold(name, "dom") {
		return DOMParser{}
	}
	return RegexParser{}
}

var (
	rowPattern  = regexp.MustCompile(`(?is)<tr\b[^>]*>(.*?)</tr>`)
	cellPattern = regexp.MustCompile(`(?is)<td\b[^>]*>(.*?)</td>`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// RegexParser scans the fixed two-column table of the registry page.
type RegexParser struct{}

func (RegexParser) Parse(html string) DeviceRecord {
	pairs := make(map[string]string)
	for _, row := range rowPattern.FindAllStringSubmatch(html, -1) {
		// Section headers and other rows without exactly two cells are skipped.
		cells := cellPattern.FindAllStringSubmatch(row[1], -1)
		if len(cells) != 2 {
			continue
		}
		key := cleanCell(cells[0][1])
		value := cleanCell(cells[1][1])
		if key == "" || value == "" {
			continue
		}
		pairs[key] = value
	}
	return recordFromPairs(pairs)
}

func cleanCell(cell string) string {
	return strings.TrimSpace(DecodeEntities(tagPattern.ReplaceAllString(cell, "")))
}

// entityReplacer only knows the Turkish letters and the four markup entities.
var entityReplacer = strings.NewReplacer(
	"&#220;", "Ü", "&Uuml;", "Ü", "&#252;", "ü", "&uuml;", "ü",
	"&#214;", "Ö", "&Ouml;", "Ö", "&#246;", "ö", "&ouml;", "ö",
	"&#199;", "Ç", "&Ccedil;", "Ç", "&#231;", "ç", "&ccedil;", "ç",
	"&#350;", "Ş", "&Scedil;", "Ş", "&#351;", "ş", "&scedil;", "ş",
	"&#304;", "İ", "&Idot;", "İ", "&#305;", "ı", "&imath;", "ı",
	"&#286;", "Ğ", "&Gbreve;", "Ğ", "&#287;", "ğ", "&gbreve;", "ğ",
	"&amp;", "&", "&gt;", ">", "&lt;", "<", "&quot;", `"`,
)

// DecodeEntities decodes the fixed entity table; every other entity is left as-is.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityReplacer.Replace(s)
}
