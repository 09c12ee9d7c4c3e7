package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/apperrs"
	"github.com/Dali999999999/AutoLofiUploader-Backend/internal/models"
)

// readRange covers the prompt sheet's fixed column layout (A through L).
const readRange = "A:L"

// Client reads and writes the prompt spreadsheet. Every call authenticates
// with a caller-supplied OAuth access token; the service holds no Google
// credentials of its own.
type Client struct {
	logger *zap.Logger
}

// NewClient creates a sheets client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{logger: logger}
}

func (c *Client) service(ctx context.Context, accessToken string) (*sheetsapi.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// FindPrompt locates the row whose first column equals promptID and returns
// the parsed record. Row numbering is 1-based as in the Sheets UI.
func (c *Client) FindPrompt(ctx context.Context, accessToken, sheetID, promptID string) (*models.PromptRecord, error) {
	rows, err := c.readAll(ctx, accessToken, sheetID)
	if err != nil {
		return nil, err
	}
	for i, cells := range rows {
		if len(cells) > 0 && strings.TrimSpace(cells[0]) == promptID {
			return models.NewPromptRecord(i+1, cells), nil
		}
	}
	return nil, apperrs.NotFound("prompt %q not found in sheet", promptID)
}

// ListUnpublished returns every prompt row whose video-URL column is still
// empty, skipping the header row if one is present.
func (c *Client) ListUnpublished(ctx context.Context, accessToken, sheetID string) ([]*models.PromptRecord, error) {
	rows, err := c.readAll(ctx, accessToken, sheetID)
	if err != nil {
		return nil, err
	}
	var records []*models.PromptRecord
	for i, cells := range rows {
		rec := models.NewPromptRecord(i+1, cells)
		if rec.ID == "" || strings.EqualFold(rec.ID, "id") {
			continue
		}
		if rec.VideoURL == "" {
			records = append(records, rec)
		}
	}
	return records, nil
}

// WriteCell writes a single value at the given 1-based row and column.
func (c *Client) WriteCell(ctx context.Context, accessToken, sheetID string, row, col int, value string) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	cell := fmt.Sprintf("%s%d", columnLetter(col), row)
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{{value}}}
	_, err = svc.Spreadsheets.Values.Update(sheetID, cell, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return mapGoogleErr("update sheet cell "+cell, err)
	}

	c.logger.Info("sheet cell updated",
		zap.String("sheet_id", sheetID),
		zap.String("cell", cell),
	)
	return nil
}

// MarkPublished records the uploaded video URL and flips the status column.
func (c *Client) MarkPublished(ctx context.Context, accessToken, sheetID string, row int, videoURL string) error {
	if err := c.WriteCell(ctx, accessToken, sheetID, row, models.ColVideoURL+1, videoURL); err != nil {
		return err
	}
	return c.WriteCell(ctx, accessToken, sheetID, row, models.ColStatus+1, "published")
}

// DeleteRow removes a prompt row entirely.
func (c *Client) DeleteRow(ctx context.Context, accessToken, sheetID string, row int) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := svc.Spreadsheets.BatchUpdate(sheetID, req).Context(ctx).Do(); err != nil {
		return mapGoogleErr("delete sheet row", err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context, accessToken, sheetID string) ([][]string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Spreadsheets.Values.Get(sheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleErr("read sheet", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		cells := make([]string, 0, len(raw))
		for _, v := range raw {
			cells = append(cells, fmt.Sprint(v))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// mapGoogleErr folds googleapi failures into the error taxonomy. An expired
// or invalid token surfaces as an auth error so the client knows to
// re-authenticate rather than retry.
func mapGoogleErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperrs.Auth("Google token expired or invalid", err)
		case http.StatusNotFound:
			return apperrs.NotFound("spreadsheet not found")
		}
	}
	return apperrs.Provider(op+" failed", err)
}

// columnLetter converts a 1-based column index to its A1 letter form.
func columnLetter(col int) string {
	var s string
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}
