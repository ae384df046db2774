package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
	"github.com/custodia-labs/capshare/internal/logger"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// ExportService prepares an account, uploads a capture, optionally shares
// it and copies the location, then records the outcome.
type ExportService struct {
	targets   driven.TargetStore
	accounts  *AccountService
	history   driven.ExportHistoryStore
	registry  *ExporterRegistry
	settings  *SettingsService
	clipboard driven.Clipboard
	now       func() time.Time
}

// NewExportService creates a new export service. clipboard may be nil.
func NewExportService(
	targets driven.TargetStore,
	accounts *AccountService,
	history driven.ExportHistoryStore,
	registry *ExporterRegistry,
	settings *SettingsService,
	clipboard driven.Clipboard,
) *ExportService {
	return &ExportService{
		targets:   targets,
		accounts:  accounts,
		history:   history,
		registry:  registry,
		settings:  settings,
		clipboard: clipboard,
		now:       time.Now,
	}
}

// Export uploads one capture to a target.
func (s *ExportService) Export(
	ctx context.Context,
	req driving.ExportRequest,
	cancel *domain.Cancellation,
	progress driven.ProgressReporter,
) (*domain.ExportRecord, error) {
	const op = "export"

	target, err := s.targets.Get(ctx, req.TargetID)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, op, fmt.Errorf("target %s: %w", req.TargetID, err))
	}
	exporter, err := s.registry.Get(target.Provider)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, op, err)
	}
	settings, err := s.settings.Get()
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, op, err)
	}

	tokens, err := s.prepareAccount(ctx, target.AccountID, cancel)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, domain.NewError(domain.ErrUpload, op, fmt.Errorf("open capture: %w", err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, domain.NewError(domain.ErrUpload, op, fmt.Errorf("stat capture: %w", err))
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(req.FilePath)
	}

	logger.Section("Export " + name)
	uploader, err := NewChunkedUploadSession(exporter.Transport(), tokens, settings.ChunkSize)
	if err != nil {
		return nil, err
	}
	result, err := uploader.Upload(ctx, file, info.Size(), domain.NewUploadCommit(name, target.Folder), cancel, progress)
	if err != nil {
		return nil, err
	}

	if target.Share {
		s.share(ctx, exporter, tokens, result)
	}

	location := result.Location()
	copied := false
	if target.CopyLocation && s.clipboard != nil && location != "" {
		if err := s.clipboard.WriteText(location); err != nil {
			logger.Warn("copy location to clipboard: %v", err)
		} else {
			copied = true
		}
	}

	captureID := req.CaptureID
	if captureID == "" {
		captureID = req.FilePath
	}
	record := domain.ExportRecord{
		ID:                uuid.New().String(),
		CaptureID:         captureID,
		Exporter:          target.Provider,
		TargetID:          target.ID,
		Location:          location,
		MediaID:           result.ID,
		CopiedToClipboard: copied,
		CreatedAt:         s.now(),
	}
	if err := s.history.Append(ctx, record); err != nil {
		logger.Warn("record export history: %v", err)
	}
	return &record, nil
}

// prepareAccount returns a token provider for an account that holds a
// valid token, authorizing first when it holds none. Revoked refresh
// tokens lead to one fresh authorization.
func (s *ExportService) prepareAccount(ctx context.Context, accountID string, cancel *domain.Cancellation) (*AccountTokenProvider, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, domain.NewError(domain.ErrConfiguration, "export", fmt.Errorf("account %s: %w", accountID, err))
	}

	if !account.IsAuthorized() {
		logger.Info("account %s has no tokens; authorizing", account.ID)
		if _, err := s.accounts.Authorize(ctx, account.ID, cancel); err != nil {
			return nil, err
		}
	}

	tokens := s.accounts.TokenProvider(account.ID)
	_, err = tokens.GetToken(ctx)
	if errors.Is(err, domain.ErrReauthorizationRequired) || errors.Is(err, domain.ErrAuthRequired) {
		logger.Info("account %s needs re-authorization", account.ID)
		if _, err := s.accounts.Authorize(ctx, account.ID, cancel); err != nil {
			return nil, err
		}
		tokens.InvalidateCache()
		_, err = tokens.GetToken(ctx)
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// share replaces the result's location with a public link. Failures keep
// the plain path.
func (s *ExportService) share(ctx context.Context, exporter driven.Exporter, tokens driven.TokenProvider, result *domain.UploadResult) {
	sharer, ok := exporter.(driven.Sharer)
	if !ok {
		logger.Warn("%s does not support sharing", exporter.Type().DisplayName())
		return
	}
	token, err := tokens.GetToken(ctx)
	if err != nil {
		logger.Warn("share: %v", err)
		return
	}
	url, err := sharer.Share(ctx, token, result)
	if err != nil {
		logger.Error("share %s: %v", result.Path, err)
		return
	}
	result.URL = url
}

// History returns the export records of one capture.
func (s *ExportService) History(ctx context.Context, captureID string) ([]domain.ExportRecord, error) {
	return s.history.ListByCapture(ctx, captureID)
}

// Recent returns the most recent export records.
func (s *ExportService) Recent(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	return s.history.List(ctx, limit)
}
