package cloudsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"billing/internal/logger"
)

const jsonMimeType = "application/json"

// DriveConfig selects credentials and the drive to search.
type DriveConfig struct {
	AccessToken     string // OAuth bearer token; takes precedence
	CredentialsFile string // Service account key file
	CredentialsJSON string // Inline service account key
	SharedDriveID   string // Restrict lookups to one shared drive
}

// DriveStore keeps the shared document as a JSON file on Google Drive.
type DriveStore struct {
	svc     *drive.Service
	driveID string
	log     zerolog.Logger
}

// NewDriveStore authenticates from cfg and returns a store.
func NewDriveStore(ctx context.Context, cfg DriveConfig) (*DriveStore, error) {
	const op = "NewDriveStore"

	client, err := driveClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewDriveStoreWithOptions(ctx, cfg.SharedDriveID, option.WithHTTPClient(client))
}

// NewDriveStoreWithOptions builds a store from explicit client options.
func NewDriveStoreWithOptions(ctx context.Context, sharedDriveID string, opts ...option.ClientOption) (*DriveStore, error) {
	const op = "NewDriveStoreWithOptions"

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create drive service: %w", op, err)
	}
	return &DriveStore{
		svc:     svc,
		driveID: sharedDriveID,
		log:     logger.WithComponent("drive"),
	}, nil
}

func driveClient(ctx context.Context, cfg DriveConfig) (*http.Client, error) {
	if cfg.AccessToken != "" {
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})), nil
	}

	var creds []byte
	switch {
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		creds = b
	case cfg.CredentialsJSON != "":
		creds = []byte(cfg.CredentialsJSON)
	default:
		return nil, errors.New("none of GDRIVE_ACCESS_TOKEN, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS is set")
	}

	jwt, err := google.JWTConfigFromJSON(creds, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return jwt.Client(ctx), nil
}

// FindOrCreate looks the file up by name across all drives and creates it if absent.
func (d *DriveStore) FindOrCreate(ctx context.Context, name string) (string, error) {
	const op = "FindOrCreate"

	q := fmt.Sprintf("name = '%s' and trashed = false", strings.ReplaceAll(name, "'", `\'`))
	call := d.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if d.driveID != "" {
		call = call.Corpora("drive").DriveId(d.driveID)
	}

	list, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to list files: %w", op, err)
	}
	if len(list.Files) > 0 {
		d.log.Debug().Str("file_id", list.Files[0].Id).Msg("Found remote document")
		return list.Files[0].Id, nil
	}

	file := &drive.File{Name: name, MimeType: jsonMimeType}
	if d.driveID != "" {
		file.Parents = []string{d.driveID}
	}
	created, err := d.svc.Files.Create(file).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%s: failed to create %s: %w", op, name, err)
	}

	d.log.Info().Str("file_id", created.Id).Str("name", name).Msg("Created remote document")
	return created.Id, nil
}

// Write replaces the file content.
func (d *DriveStore) Write(ctx context.Context, id string, blob []byte) error {
	const op = "Write"

	_, err := d.svc.Files.Update(id, &drive.File{}).
		Media(bytes.NewReader(blob), googleapi.ContentType(jsonMimeType)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("%s: failed to upload %s: %w", op, id, err)
	}
	return nil
}

// Read downloads the file content.
func (d *DriveStore) Read(ctx context.Context, id string) ([]byte, error) {
	const op = "Read"

	resp, err := d.svc.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("%s: failed to download %s: %w", op, id, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			d.log.Warn().Err(closeErr).Msg("Failed to close download body")
		}
	}()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, id, err)
	}
	return blob, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
