package registry

// Response is the JSON body returned to clients for a device lookup.
type Response struct {
	Success   bool          `json:"success"`
	Data      *DeviceRecord `json:"data,omitempty"`
	Kno       string        `json:"kno,omitempty"`
	UsedProxy string        `json:"usedProxy,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NewResponse maps a lookup outcome to its wire form. Every failure collapses
// to FailureMessage.
func NewResponse(res *Result, err error) Response {
	if err != nil || res == nil {
		return Response{Success: false, Error: FailureMessage}
	}
	rec := res.Record
	return Response{
		Success:   true,
		Data:      &rec,
		Kno:       res.Kno,
		UsedProxy: res.UsedProxy,
	}
}
