package document

import "sort"

// FieldType enumerates the field kinds the form runtime accepts.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeLongText    FieldType = "longText"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiSelect"
	FieldTypeCheckbox    FieldType = "checkbox"
	FieldTypeRadio       FieldType = "radio"
	FieldTypeContent     FieldType = "content"
	FieldTypeHidden      FieldType = "hidden"
	FieldTypeFile        FieldType = "file"
	FieldTypeOTP         FieldType = "otp"
	FieldTypeSignature   FieldType = "signature"
	FieldTypeRating      FieldType = "rating"
	FieldTypeButton      FieldType = "button"
)

var acceptedTypes = map[FieldType]struct{}{
	FieldTypeText:        {},
	FieldTypeLongText:    {},
	FieldTypeEmail:       {},
	FieldTypePhone:       {},
	FieldTypeNumber:      {},
	FieldTypeDate:        {},
	FieldTypeSelect:      {},
	FieldTypeMultiSelect: {},
	FieldTypeCheckbox:    {},
	FieldTypeRadio:       {},
	FieldTypeContent:     {},
	FieldTypeHidden:      {},
	FieldTypeFile:        {},
	FieldTypeOTP:         {},
	FieldTypeSignature:   {},
	FieldTypeRating:      {},
	FieldTypeButton:      {},
}

// IsAccepted reports whether t belongs to the closed enumeration.
func (t FieldType) IsAccepted() bool {
	_, ok := acceptedTypes[t]
	return ok
}

// IsFreeText reports whether the type captures free-form text input.
func (t FieldType) IsFreeText() bool {
	return t == FieldTypeText || t == FieldTypeLongText
}

// AcceptedTypes returns the enumeration sorted alphabetically.
func AcceptedTypes() []FieldType {
	out := make([]FieldType, 0, len(acceptedTypes))
	for t := range acceptedTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
