package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	fileTokenTTL  = 15 * time.Minute
	maxUploadSize = 10 << 20 // 10 MiB
)

// allowedUploadTypes maps accepted content types to the extension stored
// on disk. Uploads outside this set are rejected.
var allowedUploadTypes = map[string]string{
	"application/pdf":    ".pdf",
	"image/png":          ".png",
	"image/jpeg":         ".jpg",
	"image/gif":          ".gif",
	"text/plain":         ".txt",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
}

// --- DTOs ---

type UploadedFile struct {
	FileID   string `json:"file_id"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
}

type IssueTokenRequest struct {
	FileID   string `json:"file_id" binding:"required"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

type IssueTokenResponse struct {
	Token       string `json:"token"`
	DownloadURL string `json:"download_url"`
	Expires     string `json:"expires"`
}

type ResolvedFile struct {
	Path     string
	FileName string
	FileType string
}

type CleanupResult struct {
	TokensDeleted        int64 `json:"tokens_deleted"`
	RefreshTokensDeleted int64 `json:"refresh_tokens_deleted"`
	FilesDeleted         int   `json:"files_deleted"`
}

// --- Interface ---

type FileService interface {
	Upload(ctx context.Context, header *multipart.FileHeader) (*UploadedFile, error)
	IssueToken(ctx context.Context, principal model.Principal, req IssueTokenRequest) (*IssueTokenResponse, error)
	ResolveToken(ctx context.Context, token string) (*ResolvedFile, error)
	Cleanup(ctx context.Context, force bool) (*CleanupResult, error)
}

type fileService struct {
	tokens        repository.FileTokenRepository
	refreshTokens repository.RefreshTokenRepository
	audit         repository.AuditRepository
	storageDir    string
	publicDir     string
	now           func() time.Time
}

// NewFileService stores uploads under two roots: storageDir holds the
// canonical copy served through tokenized downloads, publicDir mirrors
// uploads for direct static serving and is the only dir the cleanup
// sweep may purge.
func NewFileService(tokens repository.FileTokenRepository, refreshTokens repository.RefreshTokenRepository, audit repository.AuditRepository, storageDir, publicDir string) FileService {
	return &fileService{
		tokens:        tokens,
		refreshTokens: refreshTokens,
		audit:         audit,
		storageDir:    storageDir,
		publicDir:     publicDir,
		now:           time.Now,
	}
}

// --- Implementation ---

func (s *fileService) Upload(ctx context.Context, header *multipart.FileHeader) (*UploadedFile, error) {
	if header.Size > maxUploadSize {
		return nil, apperror.InvalidInput("file exceeds the 10MB upload limit")
	}

	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return nil, apperror.InvalidInput("unsupported file type: " + contentType)
	}

	src, err := header.Open()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer src.Close()

	fileID := uuid.NewString() + ext
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return nil, apperror.Internal(err)
	}
	dstPath := filepath.Join(s.storageDir, fileID)
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return nil, apperror.Internal(err)
	}

	// Every upload gets a public mirror so the UI can reference it
	// immediately without burning a download token.
	if err := s.mirrorPublic(dstPath, fileID); err != nil {
		os.Remove(dstPath)
		return nil, apperror.Internal(err)
	}

	return &UploadedFile{
		FileID:   fileID,
		FileURL:  "/uploads/" + fileID,
		FileName: header.Filename,
		FileType: contentType,
		Size:     header.Size,
	}, nil
}

func (s *fileService) mirrorPublic(srcPath, fileID string) error {
	if err := os.MkdirAll(s.publicDir, 0o755); err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(s.publicDir, fileID))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// IssueToken mints a short-lived download capability for a stored file.
// The caller must be authenticated; possession of the resulting token is
// the only check at download time. A token for a missing file is still
// issued (the file may land async); the download itself fails closed.
func (s *fileService) IssueToken(ctx context.Context, principal model.Principal, req IssueTokenRequest) (*IssueTokenResponse, error) {
	if req.FileID == "" || req.FileID != filepath.Base(req.FileID) {
		return nil, apperror.InvalidInput("invalid file id")
	}

	if _, err := s.locateFile(req.FileID); err != nil {
		log.Printf("issuing token for missing file %s", req.FileID)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = req.FileID
	}
	fileType := req.FileType
	if fileType == "" {
		fileType = contentTypeForExt(filepath.Ext(req.FileID))
	}

	token := &model.FileToken{
		Token:    uuid.NewString(),
		FileID:   req.FileID,
		FileName: fileName,
		FileType: fileType,
		Expires:  s.now().Add(fileTokenTTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, apperror.Internal(err)
	}

	details, _ := json.Marshal(map[string]string{"file_id": req.FileID})
	userID := principal.UserID
	entry := model.AuditLog{
		UserID:   &userID,
		Action:   model.ActionIssueFileToken,
		EntityID: req.FileID,
		Details:  string(details),
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return nil, apperror.Internal(err)
	}

	return &IssueTokenResponse{
		Token:       token.Token,
		DownloadURL: "/api/files/download?token=" + token.Token,
		Expires:     token.Expires.Format(time.RFC3339),
	}, nil
}

// ResolveToken fails closed: expired, unknown, and dangling tokens all
// surface as not-found.
func (s *fileService) ResolveToken(ctx context.Context, token string) (*ResolvedFile, error) {
	if token == "" {
		return nil, apperror.NotFound("file not found")
	}

	ft, err := s.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("file not found")
		}
		return nil, apperror.Internal(err)
	}
	if ft.Expired(s.now()) {
		return nil, apperror.NotFound("file not found")
	}

	path, err := s.locateFile(ft.FileID)
	if err != nil {
		return nil, apperror.NotFound("file not found")
	}

	return &ResolvedFile{Path: path, FileName: ft.FileName, FileType: ft.FileType}, nil
}

// locateFile checks the canonical storage dir first, then the public
// mirror.
func (s *fileService) locateFile(fileID string) (string, error) {
	for _, dir := range []string{s.storageDir, s.publicDir} {
		path := filepath.Join(dir, fileID)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", os.ErrNotExist
}

// Cleanup purges expired download and refresh tokens plus public-mirror
// files older than 24h; force removes mirror files regardless of age.
// The canonical storage dir is never touched: attachments must outlive
// the sweep. Filesystem errors are best-effort: a file that cannot be
// removed is skipped, not fatal.
func (s *fileService) Cleanup(ctx context.Context, force bool) (*CleanupResult, error) {
	deleted, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return nil, apperror.Internal(err)
	}

	refreshDeleted, err := s.refreshTokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return nil, apperror.Internal(err)
	}

	result := &CleanupResult{TokensDeleted: deleted, RefreshTokensDeleted: refreshDeleted}

	cutoff := s.now().Add(-24 * time.Hour)
	if force {
		cutoff = s.now()
	}
	result.FilesDeleted = s.purgeStaleFiles(cutoff)

	details, _ := json.Marshal(result)
	entry := model.AuditLog{
		Action:  model.ActionCleanupSweep,
		Details: string(details),
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return nil, apperror.Internal(err)
	}

	return result, nil
}

// purgeStaleFiles sweeps only the public mirror; the canonical storage
// dir holds attachment files for the lifetime of their requests.
func (s *fileService) purgeStaleFiles(cutoff time.Time) int {
	removed := 0
	entries, err := os.ReadDir(s.publicDir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.publicDir, e.Name())); err == nil {
			removed++
		}
	}
	return removed
}

func contentTypeForExt(ext string) string {
	for ct, e := range allowedUploadTypes {
		if e == strings.ToLower(ext) {
			return ct
		}
	}
	return "application/octet-stream"
}
