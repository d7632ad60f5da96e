package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"evidex/internal/privilege/models"
	id "evidex/pkg/domain"
)

var logHeader = []string{
	"Entry Number", "Evidence Number", "Document Date", "Privilege Type", "Basis",
	"Author", "Recipients", "Description", "Withheld", "Waived", "Clawback Status",
}

// ExportCSV writes the case's privilege log in the column order opposing
// counsel receives it.
func (s *Service) ExportCSV(ctx context.Context, caseID id.CaseID, w io.Writer) error {
	entries, err := s.ListByCase(ctx, caseID)
	if err != nil {
		return err
	}
	return WriteCSV(w, entries)
}

// WriteCSV renders entries with a header row.
func WriteCSV(w io.Writer, entries []*models.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(logHeader); err != nil {
		return fmt.Errorf("write privilege log header: %w", err)
	}
	for _, e := range entries {
		date := ""
		if e.DocumentDate != nil {
			date = e.DocumentDate.Format(time.DateOnly)
		}
		if err := cw.Write([]string{
			e.EntryNumber,
			e.EvidenceNumber,
			date,
			string(e.PrivilegeType),
			e.Basis,
			e.Author,
			strings.Join(e.Recipients, "; "),
			e.Description,
			strconv.FormatBool(e.Withheld),
			strconv.FormatBool(e.Waived),
			string(e.ClawbackStatus),
		}); err != nil {
			return fmt.Errorf("write privilege log row %s: %w", e.EntryNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
