package controller

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/authz"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeDOC  = "application/msword"
	contentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	maxResumeNameLen = 255
)

var resumeTypesByExt = map[string]string{
	".pdf":  contentTypePDF,
	".doc":  contentTypeDOC,
	".docx": contentTypeDOCX,
}

// UploadResume stores a PDF or Word document for the candidate. The first resume
// becomes primary.
func (s *MarketplaceService) UploadResume(ctx context.Context, p *models.Principal, up models.ResumeUpload) (*models.Resume, error) {
	if err := s.authorize(p, authz.OpUploadResume, authz.Resource{}); err != nil {
		return nil, err
	}
	name, contentType, err := s.checkUpload(up)
	if err != nil {
		return nil, err
	}

	ref, err := s.storeBlob(ctx, up.Data, contentType)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(resumesKey(p.ID))
	defer unlock()

	resume := &models.Resume{
		ID:           uuid.New(),
		CandidateID:  p.ID,
		StorageRef:   ref,
		OriginalName: name,
		ContentType:  contentType,
		Size:         int64(len(up.Data)),
		CreatedAt:    s.now(),
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.LockCandidate(ctx, p.ID); err != nil {
			return err
		}
		count, err := tx.CountResumes(ctx, p.ID)
		if err != nil {
			return err
		}
		resume.IsPrimary = count == 0
		return tx.CreateResume(ctx, resume)
	})
	if err != nil {
		s.discardBlob(ctx, ref)
		return nil, fmt.Errorf("failed to save resume: %w", err)
	}

	s.emit(events.ResumeUploaded, resume.ID.String(), resume)
	s.logger.Info("resume uploaded",
		zap.String("resume_id", resume.ID.String()),
		zap.String("candidate_id", p.ID),
		zap.Int64("size", resume.Size),
		zap.Bool("primary", resume.IsPrimary),
	)
	return resume, nil
}

// checkUpload validates the document and returns its sanitized name and content type.
func (s *MarketplaceService) checkUpload(up models.ResumeUpload) (string, string, error) {
	if len(up.Data) == 0 {
		return "", "", e.Validation("file", "is empty")
	}
	if int64(len(up.Data)) > s.cfg.MaxResumeBytes {
		return "", "", e.Validation("file", fmt.Sprintf("must be at most %d bytes", s.cfg.MaxResumeBytes))
	}

	name := sanitizeFileName(up.OriginalName)
	ext := strings.ToLower(filepath.Ext(name))
	contentType, ok := resumeTypesByExt[ext]
	if !ok {
		declared, _, err := mime.ParseMediaType(up.ContentType)
		if err != nil || !allowedResumeType(declared) {
			return "", "", e.Validation("file", "must be a PDF, DOC or DOCX document")
		}
		contentType = declared
	}
	if name == "" {
		name = "resume"
	}
	return name, contentType, nil
}

func allowedResumeType(contentType string) bool {
	for _, t := range resumeTypesByExt {
		if t == contentType {
			return true
		}
	}
	return false
}

// sanitizeFileName keeps the last path element of a client supplied name and drops
// control characters.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	if len(name) > maxResumeNameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxResumeNameLen {
			ext = ""
		}
		name = name[:maxResumeNameLen-len(ext)] + ext
	}
	return name
}

func (s *MarketplaceService) ListMyResumes(ctx context.Context, p *models.Principal) ([]models.Resume, error) {
	if err := s.authorize(p, authz.OpListResumes, authz.Resource{}); err != nil {
		return nil, err
	}
	resumes, err := s.repo.ListResumes(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

// DeleteResume removes one of the candidate's resumes and returns the remaining ones.
// Deleting the primary promotes the most recently uploaded remaining resume. The blob is
// kept because applications may reference it.
func (s *MarketplaceService) DeleteResume(ctx context.Context, p *models.Principal, id uuid.UUID) ([]models.Resume, error) {
	if err := s.precheck(p, authz.OpDeleteResume); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(resumesKey(p.ID))
	defer unlock()

	var (
		resume    *models.Resume
		remaining []models.Resume
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.LockCandidate(ctx, p.ID); err != nil {
			return err
		}
		var err error
		resume, err = tx.GetResume(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpDeleteResume, authz.Resource{OwnerID: resume.CandidateID}); err != nil {
			return err
		}
		if err := tx.DeleteResume(ctx, id); err != nil {
			return err
		}
		if resume.IsPrimary {
			latest, err := tx.LatestResume(ctx, p.ID)
			switch {
			case errors.Is(err, e.ErrNotFound):
			case err != nil:
				return err
			default:
				if err := tx.MarkPrimary(ctx, p.ID, latest.ID); err != nil {
					return err
				}
			}
		}
		remaining, err = tx.ListResumes(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, lookupErr("resume", err)
	}

	s.emit(events.ResumeDeleted, resume.ID.String(), resume)
	return remaining, nil
}

// SetPrimaryResume makes id the candidate's only primary resume and returns the
// candidate's resumes.
func (s *MarketplaceService) SetPrimaryResume(ctx context.Context, p *models.Principal, id uuid.UUID) ([]models.Resume, error) {
	if err := s.precheck(p, authz.OpSetPrimaryResume); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(resumesKey(p.ID))
	defer unlock()

	var (
		changed bool
		resumes []models.Resume
	)
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.LockCandidate(ctx, p.ID); err != nil {
			return err
		}
		resume, err := tx.GetResume(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(p, authz.OpSetPrimaryResume, authz.Resource{OwnerID: resume.CandidateID}); err != nil {
			return err
		}
		if !resume.IsPrimary {
			if err := tx.ClearPrimary(ctx, p.ID); err != nil {
				return err
			}
			if err := tx.MarkPrimary(ctx, p.ID, id); err != nil {
				return err
			}
			changed = true
		}
		resumes, err = tx.ListResumes(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, lookupErr("resume", err)
	}

	if changed {
		s.emit(events.ResumePrimaryChanged, id.String(), map[string]string{
			"candidateId": p.ID,
			"resumeId":    id.String(),
		})
	}
	return resumes, nil
}

// DownloadResume returns the contents of one of the candidate's resumes.
func (s *MarketplaceService) DownloadResume(ctx context.Context, p *models.Principal, id uuid.UUID) (*models.ResumeFile, error) {
	if err := s.precheck(p, authz.OpViewResume); err != nil {
		return nil, err
	}
	resume, err := s.repo.GetResume(ctx, id)
	if err != nil {
		return nil, lookupErr("resume", err)
	}
	if err := s.authorize(p, authz.OpViewResume, authz.Resource{OwnerID: resume.CandidateID}); err != nil {
		return nil, err
	}
	data, err := s.retrieveBlob(ctx, resume.StorageRef)
	if err != nil {
		return nil, err
	}
	return &models.ResumeFile{Name: resume.OriginalName, ContentType: resume.ContentType, Data: data}, nil
}

func (s *MarketplaceService) storeBlob(ctx context.Context, data []byte, contentType string) (string, error) {
	cctx, cancel := s.collaboratorCtx(ctx)
	defer cancel()
	ref, err := s.blobs.Store(cctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store resume: %w", collaboratorErr(cctx, "blob_store", err))
	}
	return ref, nil
}

func (s *MarketplaceService) retrieveBlob(ctx context.Context, ref string) ([]byte, error) {
	cctx, cancel := s.collaboratorCtx(ctx)
	defer cancel()
	data, err := s.blobs.Retrieve(cctx, ref)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to retrieve resume: %w", collaboratorErr(cctx, "blob_retrieve", err))
	}
	return data, nil
}

// discardBlob removes a blob whose metadata could not be saved. Failures leave an
// orphan that is only logged.
func (s *MarketplaceService) discardBlob(ctx context.Context, ref string) {
	cctx, cancel := s.collaboratorCtx(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.blobs.Delete(cctx, ref); err != nil {
		s.logger.Warn("orphaned resume blob", zap.String("ref", ref), zap.Error(err))
	}
}
