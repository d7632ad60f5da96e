package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"evidex/internal/production/models"
	id "evidex/pkg/domain"
)

var indexHeader = []string{
	"Bates Number", "Evidence Number", "Page Count", "Redacted", "Withdrawn", "Added By", "Added At",
}

// ExportIndex writes the production's document index in Bates order.
func (s *Service) ExportIndex(ctx context.Context, productionID id.ProductionID, w io.Writer) error {
	p, err := s.Get(ctx, productionID)
	if err != nil {
		return err
	}
	return WriteIndex(w, p)
}

func WriteIndex(w io.Writer, p *models.Production) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(indexHeader); err != nil {
		return fmt.Errorf("write production index header: %w", err)
	}
	for _, d := range p.Documents {
		if err := cw.Write([]string{
			d.BatesNumber,
			d.EvidenceNumber,
			strconv.Itoa(d.PageCount),
			strconv.FormatBool(d.Redacted),
			strconv.FormatBool(d.Withdrawn),
			d.AddedBy,
			d.AddedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("write production index row %s: %w", d.BatesNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
