package domain

import (
	"encoding/json"
	"fmt"
)

// Схема идентификатора, которую бридж отправляет на проверку в реестр.
const IdentificationScheme = "UA-EDR"

// DocumentTypeRegisterExtract — тип документа-выписки, который бридж
// загружает обратно в award. Award с таким документом уже проверен.
const DocumentTypeRegisterExtract = "registerExtract"

// Tender — тендер площадки закупок (только поля, нужные бриджу).
type Tender struct {
	// ID — идентификатор тендера (data.id).
	ID string `json:"id"`

	// Status — статус тендера, например "active.qualification".
	Status string `json:"status,omitempty"`

	// ProcurementMethodType — тип процедуры закупки.
	ProcurementMethodType string `json:"procurementMethodType,omitempty"`

	// Awards — решения о победителях, в порядке исходного массива.
	Awards []Award `json:"awards,omitempty"`

	// Lots — лоты тендера.
	Lots []Lot `json:"lots,omitempty"`
}

// Award — решение о победителе.
type Award struct {
	ID        string     `json:"id"`
	BidID     string     `json:"bid_id,omitempty"`
	Status    string     `json:"status"`
	LotID     string     `json:"lotID,omitempty"`
	Documents []Document `json:"documents,omitempty"`
	Suppliers []Supplier `json:"suppliers,omitempty"`
}

// Supplier — поставщик в award.
type Supplier struct {
	Name       string     `json:"name,omitempty"`
	Identifier Identifier `json:"identifier"`
}

// Identifier — регистрационный идентификатор поставщика.
type Identifier struct {
	ID        string `json:"id"`
	Scheme    string `json:"scheme"`
	LegalName string `json:"legalName,omitempty"`
}

// Lot — лот тендера.
type Lot struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Document — документ, прикреплённый к award.
type Document struct {
	ID           string `json:"id,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Title        string `json:"title,omitempty"`
}

// Статусы award и лота, которые интересуют бридж.
const (
	AwardStatusPending = "pending"
	LotStatusActive    = "active"
)

type tenderEnvelope struct {
	Data *Tender `json:"data"`
}

// ParseTender разбирает ответ API площадки вида {"data": {...}}.
//
// Отсутствие обязательных полей — ErrMalformedTender с путём к полю,
// а не паника где-то в середине фильтрации.
func ParseTender(body []byte) (*Tender, error) {
	var env tenderEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTender, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedTender)
	}
	if err := env.Data.Validate(); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Validate проверяет обязательные поля тендера.
func (t *Tender) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing data.id", ErrMalformedTender)
	}
	for i, award := range t.Awards {
		if award.ID == "" {
			return fmt.Errorf("%w: missing data.awards[%d].id", ErrMalformedTender, i)
		}
		if award.Status == "" {
			return fmt.Errorf("%w: missing data.awards[%d].status", ErrMalformedTender, i)
		}
		for j, supplier := range award.Suppliers {
			if supplier.Identifier.ID == "" {
				return fmt.Errorf("%w: missing data.awards[%d].suppliers[%d].identifier.id", ErrMalformedTender, i, j)
			}
			if supplier.Identifier.Scheme == "" {
				return fmt.Errorf("%w: missing data.awards[%d].suppliers[%d].identifier.scheme", ErrMalformedTender, i, j)
			}
		}
	}
	return nil
}

// FindLot возвращает лот по ID.
func (t *Tender) FindLot(id string) (*Lot, bool) {
	for i := range t.Lots {
		if t.Lots[i].ID == id {
			return &t.Lots[i], true
		}
	}
	return nil, false
}

// ShouldProcessItem — award ждёт проверки: статус pending и
// ещё нет документа-выписки из реестра.
func ShouldProcessItem(award *Award) bool {
	if award.Status != AwardStatusPending {
		return false
	}
	for _, doc := range award.Documents {
		if doc.DocumentType == DocumentTypeRegisterExtract {
			return false
		}
	}
	return true
}

// RelatedLotActive проверяет, что лот, к которому относится award, активен.
// Award без lotID относится ко всему тендеру.
func RelatedLotActive(tender *Tender, award *Award) bool {
	if award.LotID == "" {
		return true
	}
	lot, ok := tender.FindLot(award.LotID)
	if !ok {
		return false
	}
	return lot.Status == LotStatusActive
}

// ItemKey — ключ обработки award: tender_id + "_" + item_id.
func ItemKey(tenderID, itemID string) string {
	return tenderID + "_" + itemID
}
