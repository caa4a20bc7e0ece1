package registry

// DeviceRecord 是从登记页面解析出的设备信息。
// 页面中缺失的字段保持空字符串，不会是 null。
type DeviceRecord struct {
	IdentityNumber      string `json:"identityNumber"`
	BudgetType          string `json:"budgetType"`
	AcquisitionYear     string `json:"acquisitionYear"`
	InventoryNumber     string `json:"inventoryNumber"`
	RegistryNumber      string `json:"registryNumber"`
	MaterialDescription string `json:"materialDescription"`
	DeviceType          string `json:"deviceType"`
	Description         string `json:"description"`
	Location            string `json:"location"`
	Branch              string `json:"branch"`
	Brand               string `json:"brand"`
	Model               string `json:"model"`
	Lot                 string `json:"lot"`
	SerialNumber        string `json:"serialNumber"`
	MaterialNote        string `json:"materialNote"`
	TagNote             string `json:"tagNote"`
	Barcode             string `json:"barcode"`
	InstitutionCode     string `json:"institutionCode"`
	InstitutionName     string `json:"institutionName"`
	Assignee            string `json:"assignee"`
	AssigneeLocation    string `json:"assigneeLocation"`
	AssignmentDate      string `json:"assignmentDate"`
	ProductionYear      string `json:"productionYear"`
	DeviceStatus        string `json:"deviceStatus"`
	SupplyType          string `json:"supplyType"`
	SupplierCompany     string `json:"supplierCompany"`
}

// labelFields maps the Turkish labels of the registry table to record fields.
var labelFields = map[string]func(*DeviceRecord) *string{
	"KİMLİK NO":          func(r *DeviceRecord) *string { return &r.IdentityNumber },
	"BÜTÇE TÜRÜ":         func(r *DeviceRecord) *string { return &r.BudgetType },
	"EDİNİM YILI":        func(r *DeviceRecord) *string { return &r.AcquisitionYear },
	"ENVANTER NO":        func(r *DeviceRecord) *string { return &r.InventoryNumber },
	"SİCİL NO":           func(r *DeviceRecord) *string { return &r.RegistryNumber },
	"MALZEME AÇIKLAMASI": func(r *DeviceRecord) *string { return &r.MaterialDescription },
	"TÜR":                func(r *DeviceRecord) *string { return &r.DeviceType },
	"AÇIKLAMA":           func(r *DeviceRecord) *string { return &r.Description },
	"BULUNDUĞU YER":      func(r *DeviceRecord) *string { return &r.Location },
	"BRANŞ":              func(r *DeviceRecord) *string { return &r.Branch },
	"MARKA":              func(r *DeviceRecord) *string { return &r.Brand },
	"MODEL":              func(r *DeviceRecord) *string { return &r.Model },
	"LOT":                func(r *DeviceRecord) *string { return &r.Lot },
	"S/N":                func(r *DeviceRecord) *string { return &r.SerialNumber },
	"MALZEME NOTU":       func(r *DeviceRecord) *string { return &r.MaterialNote },
	"ETİKET NOTU":        func(r *DeviceRecord) *string { return &r.TagNote },
	"BARKOD":             func(r *DeviceRecord) *string { return &r.Barcode },
	"KURUM KODU":         func(r *DeviceRecord) *string { return &r.InstitutionCode },
	"KURUM ADI":          func(r *DeviceRecord) *string { return &r.InstitutionName },
	"ZİMMETLİ KİŞİ":      func(r *DeviceRecord) *string { return &r.Assignee },
	"ZİMMETLİ KİŞİ YERİ": func(r *DeviceRecord) *string { return &r.AssigneeLocation },
	"ZİMMET TARİHİ":      func(r *DeviceRecord) *string { return &r.AssignmentDate },
	"ÜRETİM YILI":        func(r *DeviceRecord) *string { return &r.ProductionYear },
	"CİHAZ DURUMU":       func(r *DeviceRecord) *string { return &r.DeviceStatus },
	"TEDARİK ŞEKLİ":      func(r *DeviceRecord) *string { return &r.SupplyType },
	"TEDARİKÇİ FİRMA":    func(r *DeviceRecord) *string { return &r.SupplierCompany },
}

// recordFromPairs builds a record from label/value pairs; unknown labels are dropped.
func recordFromPairs(pairs map[string]string) DeviceRecord {
	var rec DeviceRecord
	for label, value := range pairs {
		if field, ok := labelFields[label]; ok {
			*field(&rec) = value
		}
	}
	return rec
}

// HasIdentity reports whether the record names the physical device at all.
func (r DeviceRecord) HasIdentity() bool {
	return r.SerialNumber != "" || r.Brand != "" || r.Model != ""
}

// CountPopulated returns the number of non-empty fields.
func (r DeviceRecord) CountPopulated() int {
	n := 0
	for _, field := range labelFields {
		if *field(&r) != "" {
			n++
		}
	}
	return n
}
