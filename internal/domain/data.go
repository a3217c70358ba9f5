package domain

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Author — тег автора документа, который бридж создаёт от своего имени.
const Author = "IdentificationBot"

// IDPassportLen — длина номера ID-карты; 9-значный цифровой код
// классифицируется как паспорт, а не как код ЕГРПОУ/ИНН.
const IDPassportLen = 9

// Виды элементов тендера, для которых создаётся запрос.
const ItemKindAwards = "awards"

// passportRe — серия паспорта старого образца: две буквы и шесть цифр.
var passportRe = regexp.MustCompile(`^[\p{L}]{2}\d{6}$`)

// Data — запрос на проверку идентификатора одного поставщика.
//
// Создаётся FilterStage в момент, когда award прошёл фильтрацию и
// дедупликацию. После передачи в очередь edrpou_codes не изменяется,
// кроме добавления correlation ID в Payload.Meta.SourceRequests.
type Data struct {
	TenderID string `json:"tender_id"`
	ItemID   string `json:"item_id"`

	// Code — идентификатор для проверки в реестре.
	Code string `json:"code"`

	// ItemKind — вид элемента, например "awards".
	ItemKind string `json:"item_kind"`

	// CompanyName / LastName / FirstName / FamilyName — имя поставщика
	// для XML-запроса; для физлица заполняются поля ФИО.
	CompanyName string `json:"company_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	FamilyName  string `json:"family_name,omitempty"`

	Payload Payload `json:"payload"`
}

// Payload — вложенный документ запроса.
type Payload struct {
	Meta Meta `json:"meta"`
}

// Meta — метаданные документа.
type Meta struct {
	// ID — сгенерированный ID документа.
	ID string `json:"id"`

	// Author — тег автора (Author).
	Author string `json:"author"`

	// SourceRequests — X-Request-ID каждого исходящего HTTP-запроса,
	// затронувшего эту запись. Только добавление.
	SourceRequests []string `json:"sourceRequests"`
}

// NewData создаёт запрос для award. requestID — X-Request-ID ответа,
// из которого был получен тендер (может быть пустым).
func NewData(tenderID, itemID, code, itemKind, documentID, requestID string) *Data {
	d := &Data{
		TenderID: tenderID,
		ItemID:   itemID,
		Code:     code,
		ItemKind: itemKind,
		Payload: Payload{Meta: Meta{
			ID:             documentID,
			Author:         Author,
			SourceRequests: []string{},
		}},
	}
	d.AddRequestID(requestID)
	return d
}

// DocID возвращает ID документа. Пустая строка — Data создана некорректно.
func (d *Data) DocID() string {
	return d.Payload.Meta.ID
}

// Param — тип параметра запроса к реестру: "id" для кодов ЕГРПОУ/ИНН,
// "passport" для всего остального.
func (d *Data) Param() string {
	return ClassifyCode(d.Code)
}

// IsPhysical — поставщик является физическим лицом (ИНН или паспорт).
func (d *Data) IsPhysical() bool {
	return d.Param() == "passport" || len(d.Code) == 10
}

// AddRequestID добавляет correlation ID исходящего запроса.
func (d *Data) AddRequestID(requestID string) {
	if requestID == "" {
		return
	}
	d.Payload.Meta.SourceRequests = append(d.Payload.Meta.SourceRequests, requestID)
}

// Key возвращает ключ обработки.
func (d *Data) Key() string {
	return ItemKey(d.TenderID, d.ItemID)
}

// Equal — структурное сравнение по всем полям.
func (d *Data) Equal(other *Data) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.TenderID == other.TenderID &&
		d.ItemID == other.ItemID &&
		d.Code == other.Code &&
		d.ItemKind == other.ItemKind &&
		d.CompanyName == other.CompanyName &&
		d.LastName == other.LastName &&
		d.FirstName == other.FirstName &&
		d.FamilyName == other.FamilyName &&
		d.Payload.Meta.ID == other.Payload.Meta.ID &&
		d.Payload.Meta.Author == other.Payload.Meta.Author &&
		slices.Equal(d.Payload.Meta.SourceRequests, other.Payload.Meta.SourceRequests)
}

// ClassifyCode: цифровой код длиной не IDPassportLen — "id",
// всё остальное — "passport".
func ClassifyCode(code string) string {
	if isDigits(code) && len(code) != IDPassportLen {
		return "id"
	}
	return "passport"
}

// IsCodeInvalid — код не похож ни на цифровой идентификатор,
// ни на серию и номер паспорта.
func IsCodeInvalid(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return true
	}
	if isDigits(code) {
		return len(code) > 10
	}
	return !passportRe.MatchString(code)
}

// SplitPersonName разбивает "Фамилия Имя Отчество" на части.
func SplitPersonName(name string) (last, first, family string) {
	parts := strings.Fields(name)
	if len(parts) > 0 {
		last = parts[0]
	}
	if len(parts) > 1 {
		first = parts[1]
	}
	if len(parts) > 2 {
		family = strings.Join(parts[2:], " ")
	}
	return last, first, family
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
