package usecase

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"crm-backend/internal/contact/domain"
	"crm-backend/pkg/apperrors"

	"go.uber.org/zap"
)

// dueDateLayouts are tried in order; ambiguous dates read as month first
var dueDateLayouts = []string{"2006-01-02", "01/02/2006", "02/01/2006"}

// ImportCSV reads a header row followed by one contact per row. Rows without a
// name are skipped. The whole file is stored in one transaction.
func (u *contactUsecase) ImportCSV(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, apperrors.NewBadRequest(apperrors.CodeValidation, "unreadable CSV header")
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[normalizeColumn(h)] = i
	}

	var contacts []*domain.Contact
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, apperrors.NewBadRequest(apperrors.CodeValidation, fmt.Sprintf("malformed CSV at line %d", line))
		}

		get := func(col string) string {
			if i, ok := columns[col]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		name := get("name")
		if name == "" {
			continue
		}

		contact := &domain.Contact{
			Name:    name,
			Email:   get("email"),
			Company: get("company"),
			Phone:   get("phone"),
			Notes:   get("notes"),
			Tags:    get("tags"),
		}
		if title := get("next_action"); title != "" {
			contact.Actions = []domain.Action{{
				Title:   title,
				DueDate: ParseDueDate(get("due_date")),
				Status:  domain.ActionStatusPending,
			}}
		}
		contacts = append(contacts, contact)
	}

	if err := u.contactRepo.CreateBatch(contacts); err != nil {
		return 0, fmt.Errorf("failed to import contacts: %w", err)
	}

	u.logger.Info("Contacts imported", zap.Int("count", len(contacts)))
	return len(contacts), nil
}

// ParseDueDate parses YYYY-MM-DD, MM/DD/YYYY or DD/MM/YYYY. Anything else is nil.
func ParseDueDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// normalizeColumn maps "Next Action", "next_action" and BOM-prefixed headers to one key
func normalizeColumn(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}
