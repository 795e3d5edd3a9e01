package store

// AccessCode is one entry in the access-code list. From and Till are local
// datetimes in "YYYY-MM-DD HH:mm" form; Till may be a legacy date-only
// "YYYY-MM-DD" value, which matching treats as end of that day.
type AccessCode struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	From        string `json:"from"`
	Till        string `json:"till"`
	ReferenceID string `json:"reference_id,omitempty"`
}
