package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
)

type StorageService interface {
	SaveFile(file *multipart.FileHeader, docType models.DocumentType) (string, string, error)
	DeleteFile(filePath string) error
	EnsureUploadDirs() error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDirs() error {
	for _, docType := range []models.DocumentType{models.DocumentTypeCV, models.DocumentTypeProjectReport} {
		if err := os.MkdirAll(s.dirFor(docType), 0755); err != nil {
			return fmt.Errorf("failed to create upload directory: %w", err)
		}
	}

	return nil
}

// SaveFile stores an uploaded PDF under a per-type subdirectory and returns
// the generated filename and the full path.
func (s *storageService) SaveFile(file *multipart.FileHeader, docType models.DocumentType) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		return "", "", fmt.Errorf("invalid file extension: %s", ext)
	}

	uniqueFilename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(s.dirFor(docType), uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

func (s *storageService) DeleteFile(filePath string) error {
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *storageService) dirFor(docType models.DocumentType) string {
	switch docType {
	case models.DocumentTypeProjectReport:
		return filepath.Join(s.uploadPath, "project-report")
	default:
		return filepath.Join(s.uploadPath, "cv")
	}
}
