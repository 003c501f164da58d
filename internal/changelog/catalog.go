package changelog

// Catalog holds the localized sentences used by the builder and renderer.
// Format verbs are filled with fmt.Sprintf.
type Catalog struct {
	// PasswordLabel is the field label whose values are never shown.
	PasswordLabel string

	ObjectAdded   string
	ObjectDeleted string
	InvalidFormat string

	AddedObject        string // %s: object
	DeletedObject      string // %s: object
	FieldChanged       string // %s: field
	FieldChangedFromTo string // %s: field, old, new

	// Header prefixes a rendered message: actor, app label, object id.
	Header string

	ActionAdded   string
	ActionChanged string
	ActionDeleted string
}

// Korean is the default catalog. Stored messages reference PasswordLabel,
// so changing it breaks redaction of existing rows.
var Korean = Catalog{
	PasswordLabel: "비밀번호",

	ObjectAdded:   "오브젝트가 추가되었습니다.",
	ObjectDeleted: "오브젝트가 삭제되었습니다.",
	InvalidFormat: "유효하지 않은 JSON 형식입니다.",

	AddedObject:        "'%s'를 추가하였습니다.",
	DeletedObject:      "'%s'를 삭제하였습니다.",
	FieldChanged:       "'%s' 필드를 변경하였습니다.",
	FieldChangedFromTo: "'%s' 필드의 '%s'에서 '%s'로 변경하였습니다.",

	Header: "%s님이 %s탭의 ID: %s의 ",

	ActionAdded:   "추가",
	ActionChanged: "변경",
	ActionDeleted: "삭제",
}
