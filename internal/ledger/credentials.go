package ledger

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes needed to find a spreadsheet by name and append to it.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveMetadataReadonlyScope,
}

// ServiceAccountOption turns a service account key into a client option.
func ServiceAccountOption(ctx context.Context, credentialsJSON []byte) (option.ClientOption, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	return option.WithTokenSource(creds.TokenSource), nil
}
