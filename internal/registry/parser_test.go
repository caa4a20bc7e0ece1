package registry

import (
	"encoding/json"
	"testing"
)

const samplePage = `<html><body>
<table class="bilgi">
  <tr><td>K&#304;ML&#304;K NO</td><td> 123456789 </td></tr>
  <TR> <TD>MARKA</TD> <TD>Philips</TD> </TR>
  <tr><td>MODEL</td><td>IntelliVue MX450</td></tr>
  <tr><td>S/N</td><td><span>DE1234567</span></td></tr>
  <tr><td>KURUM ADI</td><td>&#220;sk&#220;dar Devlet Hastanesi</td></tr>
  <tr><td>T&#220;R</td><td>Hasta Monit&#246;r&#252;</td></tr>
  <tr><td>BİLİNMEYEN ETİKET</td><td>yok sayılır</td></tr>
  <tr><td>LOT</td><td>   </td></tr>
</table>
</body></html>`

func TestRegexParser_SingleRow(t *testing.T) {
	rec := RegexParser{}.Parse(`<tr><td>MARKA</td><td>Philips</td></tr>`)
	if rec.Brand != "Philips" {
		t.Errorf("Expected brand 'Philips', got '%s'", rec.Brand)
	}
}

const sectionHeaderPage = `<table>
<tr><td colspan="2">C&#304;HAZ B&#304;LG&#304;LER&#304;</td></tr>
<tr><td>MARKA</td><td>Philips</td></tr>
<tr><td>MODEL</td><td>MX450</td></tr>
<tr><th>S/N</th></tr>
<tr><td>S/N</td><td>DE1234567</td><td>extra</td></tr>
</table>`

func TestRegexParser_SingleCellRowDoesNotSwallowNextRow(t *testing.T) {
	for _, p := range []Parser{RegexParser{}, DOMParser{}} {
		rec := p.Parse(sectionHeaderPage)
		if rec.Brand != "Philips" || rec.Model != "MX450" {
			t.Errorf("%T: expected brand 'Philips' and model 'MX450', got '%s' and '%s'", p, rec.Brand, rec.Model)
		}
		if rec.SerialNumber != "" {
			t.Errorf("%T: expected rows without exactly two cells to be skipped, got serial '%s'", p, rec.SerialNumber)
		}
	}
}

func TestRegexParser_TrackTagIsNotARow(t *testing.T) {
	rec := RegexParser{}.Parse(`<video><track src="x.vtt"><td>LOT</td><td>L-1</td></video><tr><td>MARKA</td><td>GE</td></tr>`)
	if rec.Lot != "" {
		t.Errorf("Expected no lot from a <track> element, got '%s'", rec.Lot)
	}
	if rec.Brand != "GE" {
		t.Errorf("Expected brand 'GE', got '%s'", rec.Brand)
	}
}

func TestRegexParser_DecodesTurkishEntitiesMidWord(t *testing.T) {
	rec := RegexParser{}.Parse(`<tr><td>KURUM ADI</td><td>&#220;sk&#220;dar Hastanesi</td></tr>`)
	if rec.InstitutionName != "ÜskÜdar Hastanesi" {
		t.Errorf("Expected institutionName 'ÜskÜdar Hastanesi', got '%s'", rec.InstitutionName)
	}
}

func TestRegexParser_FullPage(t *testing.T) {
	rec := RegexParser{}.Parse(samplePage)

	checks := map[string]string{
		"identityNumber":  rec.IdentityNumber,
		"brand":           rec.Brand,
		"model":           rec.Model,
		"serialNumber":    rec.SerialNumber,
		"institutionName": rec.InstitutionName,
		"deviceType":      rec.DeviceType,
		"lot":             rec.Lot,
	}
	want := map[string]string{
		"identityNumber":  "123456789",
		"brand":           "Philips",
		"model":           "IntelliVue MX450",
		"serialNumber":    "DE1234567",
		"institutionName": "ÜskÜdar Devlet Hastanesi",
		"deviceType":      "Hasta Monitörü",
		"lot":             "",
	}
	for field, got := range checks {
		if got != want[field] {
			t.Errorf("%s: expected '%s', got '%s'", field, want[field], got)
		}
	}
	if n := rec.CountPopulated(); n != 6 {
		t.Errorf("Expected 6 populated fields, got %d", n)
	}
}

func TestParse_EveryFieldIsAString(t *testing.T) {
	for name, p := range map[string]Parser{"regex": RegexParser{}, "dom": DOMParser{}} {
		rec := p.Parse(`<tr><td>MARKA</td><td>GE</td></tr>`)
		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("%s: marshal failed: %v", name, err)
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(data, &fields); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", name, err)
		}
		if len(fields) != 26 {
			t.Errorf("%s: expected 26 fields, got %d", name, len(fields))
		}
		for key, value := range fields {
			s, ok := value.(string)
			if !ok {
				t.Errorf("%s: field %s is %T, expected string", name, key, value)
				continue
			}
			if key != "brand" && s != "" {
				t.Errorf("%s: field %s expected empty, got '%s'", name, key, s)
			}
		}
	}
}

func TestParse_MalformedInputNeverPanics(t *testing.T) {
	inputs := []string{"", "<tr><td>", "<<<>>>", "<tr><td>MARKA</td></tr>", "&#220;&#"}
	for _, in := range inputs {
		for _, p := range []Parser{RegexParser{}, DOMParser{}} {
			rec := p.Parse(in)
			if rec.CountPopulated() != 0 {
				t.Errorf("Expected no fields for %q, got %+v", in, rec)
			}
		}
	}
}

func TestDecodeEntities_LeavesUnknownEntities(t *testing.T) {
	got := DecodeEntities("A&amp;B &nbsp; &#169; &#304;zmir &lt;x&gt; &quot;q&quot;")
	want := `A&B &nbsp; &#169; İzmir <x> "q"`
	if got != want {
		t.Errorf("Expected '%s', got '%s'", want, got)
	}
}

func TestDecodeEntities_NoDoubleDecoding(t *testing.T) {
	if got := DecodeEntities("&amp;#220;"); got != "&#220;" {
		t.Errorf("Expected '&#220;', got '%s'", got)
	}
}

func TestDOMParser_MatchesRegexParserOnPlainPage(t *testing.T) {
	regexRec := RegexParser{}.Parse(samplePage)
	domRec := DOMParser{}.Parse(samplePage)
	if regexRec != domRec {
		t.Errorf("Parsers disagree:\nregex: %+v\ndom:   %+v", regexRec, domRec)
	}
}

func TestNewParser(t *testing.T) {
	if _, ok := NewParser("dom").(DOMParser); !ok {
		t.Error("Expected DOMParser for 'dom'")
	}
	if _, ok := NewParser("").(RegexParser); !ok {
		t.Error("Expected RegexParser by default")
	}
}

func TestExtractKno(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"123456", "123456", true},
		{"  987  ", "987", true},
		{"https://sbu2.saglik.gov.tr/QR/QR.aspx?kno=555", "555", true},
		{"QR.aspx?KNO=42", "42", true},
		{"kno=77", "77", true},
		{"https://example.com/other", "", false},
		{"two words", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ExtractKno(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ExtractKno(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
