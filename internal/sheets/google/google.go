// Package google exports computed distributions to a Google Sheets
// spreadsheet using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"riparto/internal/calculator"
	"riparto/internal/core"
	ports "riparto/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year (e.g. "Riparto"); code prefixes the year.
	sheetBase string
}

var _ ports.DistributionExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Riparto").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetBase := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetBase == "" {
		sheetBase = "Riparto"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

var exportHeader = []any{
	"Unità", "Proprietario", "Inquilino",
	"Addebito Millesimale", "Addebito Acqua", "Scompenso AQP", "Consumo Acqua (mc)",
	"Spese Proprietario", "Spese Inquilino",
	"Versamenti Proprietario", "Versamenti Inquilino",
	"Saldo Prec. Proprietario", "Saldo Prec. Inquilino",
	"Totale Dovuto Gestione", "Riparto Proprietario", "Riparto Inquilino", "Totale da Pagare",
}

// ExportDistribution clears the year sheet and writes the header plus one
// row per unit.
func (c *Client) ExportDistribution(ctx context.Context, year int, results map[string]*calculator.UnitResult, units []core.Unit) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := yearPrefixedName(c.sheetBase, year)
	rows := buildRows(results, units)

	clearRange := fmt.Sprintf("%s!A:Q", sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheetName, err)
	}

	values := append([][]any{exportHeader}, rows...)
	writeRange := fmt.Sprintf("%s!A1:Q%d", sheetName, len(values))
	vr := &gsheet.ValueRange{Values: values}

	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", sheetName, err)
	}

	slog.InfoContext(ctx, "Distribution exported to Google Sheets",
		"fiscal_year", year,
		"sheet", sheetName,
		"units", len(rows))

	return writeRange, nil
}

// buildRows renders the per-unit statement lines ordered by unit name with
// Italian collation.
func buildRows(results map[string]*calculator.UnitResult, units []core.Unit) [][]any {
	sorted := append([]core.Unit(nil), units...)
	coll := collate.New(language.Italian)
	sort.Slice(sorted, func(i, j int) bool {
		return coll.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	rows := make([][]any, 0, len(sorted))
	for _, u := range sorted {
		r, ok := results[u.ID]
		if !ok {
			continue
		}
		rows = append(rows, []any{
			u.Name, u.Owner, u.Tenant,
			r.AddebitoMillesimale, r.AddebitoAcqua, r.ScompensoAcqua, r.ConsumoAcquaMc,
			r.SpeseTotaliProprietario, r.SpeseTotaliInquilino,
			r.VersamentiTotaliProprietario, r.VersamentiTotaliInquilino,
			r.SaldoPrecedenteProprietario, r.SaldoPrecedenteInquilino,
			r.TotaleDovutoGestione, r.RipartoProprietario, r.RipartoInquilino, r.TotaleDaPagare,
		})
	}
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
