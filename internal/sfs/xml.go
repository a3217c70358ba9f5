package sfs

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shaiso/dfsbridge/internal/domain"
)

// Request — XML-запрос справки в канал корреспонденции.
//
// Элементы имён присутствуют всегда: для юрлица заполнен HLNAMEU,
// для физлица HLNAME/HPNAME/HFNAME.
type Request struct {
	XMLName xml.Name `xml:"request"`

	// HNUM — номер запроса.
	HNUM string `xml:"HNUM"`

	// HTIN — код ЕГРПОУ/ИНН или серия и номер паспорта.
	HTIN string `xml:"HTIN"`

	// HLNAMEU — наименование юрлица.
	HLNAMEU string `xml:"HLNAMEU"`

	HLNAME string `xml:"HLNAME"`
	HPNAME string `xml:"HPNAME"`
	HFNAME string `xml:"HFNAME"`

	// ID — ID тендера.
	ID string `xml:"ID"`

	// HFILL — время формирования (RFC 3339).
	HFILL string `xml:"HFILL"`
}

// BuildRequest формирует и проверяет XML-запрос по Data.
func BuildRequest(data *domain.Data, requestNumber int, now time.Time) ([]byte, error) {
	req := Request{
		HNUM:  strconv.Itoa(requestNumber),
		HTIN:  data.Code,
		ID:    data.TenderID,
		HFILL: now.Format(time.RFC3339),
	}
	if data.IsPhysical() {
		req.HLNAME = data.LastName
		req.HPNAME = data.FirstName
		req.HFNAME = data.FamilyName
	} else {
		req.HLNAMEU = data.CompanyName
	}

	out, err := xml.MarshalIndent(req, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", ErrInvalidRequest, err)
	}
	out = append([]byte(xml.Header), out...)

	if err := ValidateRequest(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateRequest проверяет запрос по правилам схемы:
//   - HNUM — положительное число;
//   - HTIN — 8 или 10 цифр либо паспорт;
//   - ID и HFILL (RFC 3339) обязательны;
//   - имя либо юрлица (8 цифр), либо физлица, но не оба.
func ValidateRequest(payload []byte) error {
	var req Request
	if err := xml.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.XMLName.Local != "request" {
		return fmt.Errorf("%w: root element %q", ErrInvalidRequest, req.XMLName.Local)
	}

	if n, err := strconv.Atoi(strings.TrimSpace(req.HNUM)); err != nil || n <= 0 {
		return fmt.Errorf("%w: HNUM %q", ErrInvalidRequest, req.HNUM)
	}

	code := strings.TrimSpace(req.HTIN)
	company := domain.ClassifyCode(code) == "id" && len(code) == 8
	physical := domain.ClassifyCode(code) == "id" && len(code) == 10 ||
		domain.ClassifyCode(code) == "passport" && !domain.IsCodeInvalid(code)
	if !company && !physical {
		return fmt.Errorf("%w: HTIN %q", ErrInvalidRequest, req.HTIN)
	}

	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidRequest)
	}
	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(req.HFILL)); err != nil {
		return fmt.Errorf("%w: HFILL %q", ErrInvalidRequest, req.HFILL)
	}

	personSet := req.HLNAME != "" || req.HPNAME != "" || req.HFNAME != ""
	switch {
	case company && personSet:
		return fmt.Errorf("%w: person name for company code", ErrInvalidRequest)
	case company && req.HLNAMEU == "":
		return fmt.Errorf("%w: HLNAMEU is required", ErrInvalidRequest)
	case physical && req.HLNAMEU != "":
		return fmt.Errorf("%w: company name for person code", ErrInvalidRequest)
	case physical && req.HLNAME == "":
		return fmt.Errorf("%w: HLNAME is required", ErrInvalidRequest)
	}
	return nil
}
