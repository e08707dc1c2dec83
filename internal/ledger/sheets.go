package ledger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

type SheetsConfig struct {
	// SpreadsheetID skips the Drive lookup when set.
	SpreadsheetID   string
	SpreadsheetName string

	// Endpoint overrides, for proxies and tests.
	SheetsEndpoint string
	DriveEndpoint  string
}

// Sheets appends rows to the first sheet of one spreadsheet.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetTitle    string
	now           func() time.Time
}

// OpenSheets resolves the spreadsheet and its first sheet. Any failure here
// means the ledger is unusable.
func OpenSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	sheetsOpts := append([]option.ClientOption{}, opts...)
	if cfg.SheetsEndpoint != "" {
		sheetsOpts = append(sheetsOpts, option.WithEndpoint(cfg.SheetsEndpoint))
	}
	svc, err := sheets.NewService(ctx, sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	id := cfg.SpreadsheetID
	if id == "" {
		driveOpts := append([]option.ClientOption{}, opts...)
		if cfg.DriveEndpoint != "" {
			driveOpts = append(driveOpts, option.WithEndpoint(cfg.DriveEndpoint))
		}
		id, err = findSpreadsheet(ctx, cfg.SpreadsheetName, driveOpts)
		if err != nil {
			return nil, err
		}
	}

	ss, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", id, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", id)
	}

	title := ss.Sheets[0].Properties.Title
	log.Printf("📗 Connected to spreadsheet %s (sheet %q)", id, title)
	return &Sheets{svc: svc, spreadsheetID: id, sheetTitle: title, now: time.Now}, nil
}

func findSpreadsheet(ctx context.Context, name string, opts []option.ClientOption) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no spreadsheet name or id configured", ErrNotFound)
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create drive service: %w", err)
	}
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
	list, err := svc.Files.List().
		Q(q).
		Fields("files(id,name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to search spreadsheet %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return list.Files[0].Id, nil
}

func (s *Sheets) Append(ctx context.Context, e Entry) error {
	row := NewRow(s.now(), e)
	vr := &sheets.ValueRange{Values: [][]interface{}{row.Values()}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteSheet(s.sheetTitle), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	log.Printf("📝 Ledger row appended for %s", e.Email)
	return nil
}

func (s *Sheets) SpreadsheetID() string { return s.spreadsheetID }

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
