package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// ChunkedUploadSession drives the start/append/finish sequence of one
// provider transport. Chunks are sent strictly in order; a bearer token is
// fetched from the token provider before every request.
type ChunkedUploadSession struct {
	transport driven.UploadSessionTransport
	tokens    driven.TokenProvider
	chunkSize int
}

// NewChunkedUploadSession creates an upload driver. chunkSize must be a
// positive multiple of domain.ChunkAlignment.
func NewChunkedUploadSession(
	transport driven.UploadSessionTransport,
	tokens driven.TokenProvider,
	chunkSize int,
) (*ChunkedUploadSession, error) {
	if !domain.ValidChunkSize(chunkSize) {
		return nil, domain.NewError(domain.ErrConfiguration, "upload",
			fmt.Errorf("%w: chunk size %d is not a positive multiple of %d", domain.ErrInvalidInput, chunkSize, domain.ChunkAlignment))
	}
	return &ChunkedUploadSession{
		transport: transport,
		tokens:    tokens,
		chunkSize: chunkSize,
	}, nil
}

// uploadRun is the state of one Upload call.
type uploadRun struct {
	ctx      context.Context
	src      io.Reader
	buf      []byte
	session  *domain.UploadSession
	cancel   *domain.Cancellation
	progress driven.ProgressReporter
}

func (r *uploadRun) report(state domain.ProgressState, percent float64) {
	if r.progress == nil {
		return
	}
	r.progress.ReportProgress(domain.ProgressUpdate{
		State:      state,
		Percent:    percent,
		BytesSent:  r.session.Offset,
		TotalBytes: r.session.TotalSize,
	})
}

// stopped reports whether the caller cancelled before the next step.
func (r *uploadRun) stopped() error {
	if r.cancel.Cancelled() {
		return domain.ErrCancelled
	}
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	return nil
}

// read fills the next n bytes of the chunk buffer from the source.
func (r *uploadRun) read(n int64) ([]byte, error) {
	chunk := r.buf[:n]
	if _, err := io.ReadFull(r.src, chunk); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("source ended before byte %d of %d", r.session.Offset+n, r.session.TotalSize)
		}
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return chunk, nil
}

// Upload sends size bytes from src and commits them as described by
// commit. Progress goes to progress (may be nil); cancel (may be nil) is
// checked before every append and before finish. In-flight requests are
// not interrupted and the server-side session is left to expire.
func (u *ChunkedUploadSession) Upload(
	ctx context.Context,
	src io.Reader,
	size int64,
	commit domain.UploadCommit,
	cancel *domain.Cancellation,
	progress driven.ProgressReporter,
) (*domain.UploadResult, error) {
	run := &uploadRun{
		ctx:      ctx,
		src:      src,
		buf:      make([]byte, u.chunkSize),
		session:  &domain.UploadSession{TotalSize: size, Commit: commit},
		cancel:   cancel,
		progress: progress,
	}

	result, err := u.upload(run)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			run.report(domain.ProgressCancelled, domain.TransferPercent(run.session.Offset, size))
		} else {
			run.report(domain.ProgressFailed, domain.TransferPercent(run.session.Offset, size))
		}
		return nil, domain.AsExportError(domain.ErrUpload, "upload", err)
	}
	return result, nil
}

func (u *ChunkedUploadSession) upload(run *uploadRun) (*domain.UploadResult, error) {
	session := run.session
	chunkSize := int64(u.chunkSize)

	if session.TotalSize < 0 {
		return nil, fmt.Errorf("%w: negative size %d", domain.ErrInvalidInput, session.TotalSize)
	}

	run.report(domain.ProgressPreparing, 0)
	logger.Debug("upload: %d bytes in chunks of %d to %s", session.TotalSize, chunkSize, session.Commit.Path)

	// Start carries the first chunk.
	chunk, err := run.read(min(chunkSize, session.TotalSize))
	if err != nil {
		return nil, err
	}
	token, err := u.tokens.GetToken(run.ctx)
	if err != nil {
		return nil, err
	}
	if err := u.transport.Start(run.ctx, token, session, chunk); err != nil {
		return nil, err
	}
	session.Offset += int64(len(chunk))
	logger.Debug("upload: session %s started, offset %d", session.ID, session.Offset)
	run.report(domain.ProgressTransferring, domain.TransferPercent(session.Offset, session.TotalSize))

	for session.Remaining() > chunkSize {
		if err := run.stopped(); err != nil {
			return nil, err
		}
		chunk, err := run.read(chunkSize)
		if err != nil {
			return nil, err
		}
		token, err := u.tokens.GetToken(run.ctx)
		if err != nil {
			return nil, err
		}
		if err := u.transport.Append(run.ctx, token, session, chunk); err != nil {
			return nil, err
		}
		session.Offset += int64(len(chunk))
		logger.Debug("upload: appended, offset %d/%d", session.Offset, session.TotalSize)
		run.report(domain.ProgressTransferring, domain.TransferPercent(session.Offset, session.TotalSize))
	}

	if err := run.stopped(); err != nil {
		return nil, err
	}
	chunk, err = run.read(session.Remaining())
	if err != nil {
		return nil, err
	}
	run.report(domain.ProgressFinishing, domain.ProgressTransferEnd)
	token, err = u.tokens.GetToken(run.ctx)
	if err != nil {
		return nil, err
	}
	result, err := u.transport.Finish(run.ctx, token, session, chunk)
	if err != nil {
		return nil, err
	}
	session.Offset += int64(len(chunk))
	logger.Debug("upload: committed %s (%d bytes)", result.Path, session.Offset)
	run.report(domain.ProgressDone, 100)
	return result, nil
}
