package handlers

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/models"
	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
	"github.com/akbaraffaruk/cv-analysis/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload. Both files are required; text is
// extracted immediately so documents are read-only afterwards.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	cvFile := firstFile(form, "cv")
	projectFile := firstFile(form, "project_report")

	if cvFile == nil || projectFile == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Both 'cv' and 'project_report' PDF files are required",
		})
	}

	cvDoc, status, err := h.saveDocument(cvFile, models.DocumentTypeCV)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	projectDoc, status, err := h.saveDocument(projectFile, models.DocumentTypeProjectReport)
	if err != nil {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		Message: "Documents uploaded successfully",
		CV: models.UploadedDocument{
			ID:           cvDoc.ID.String(),
			OriginalName: cvDoc.OriginalName,
			FileType:     string(cvDoc.Type),
			FileSize:     cvDoc.FileSize,
		},
		ProjectReport: models.UploadedDocument{
			ID:           projectDoc.ID.String(),
			OriginalName: projectDoc.OriginalName,
			FileType:     string(projectDoc.Type),
			FileSize:     projectDoc.FileSize,
		},
	})
}

func (h *UploadHandler) saveDocument(file *multipart.FileHeader, docType models.DocumentType) (*models.Document, int, error) {
	if file.Size > h.maxFileSize {
		return nil, fiber.StatusBadRequest,
			fmt.Errorf("%s file too large. Max size: %d bytes", docType, h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, docType)
	if err != nil {
		return nil, fiber.StatusInternalServerError,
			fmt.Errorf("failed to save %s file: %v", docType, err)
	}

	extractedText, err := h.pdfParser.ExtractText(filePath)
	if err != nil {
		h.storageService.DeleteFile(filePath)
		return nil, fiber.StatusBadRequest,
			fmt.Errorf("failed to extract text from %s: %v", docType, err)
	}

	doc := &models.Document{
		ID:            uuid.New(),
		Type:          docType,
		Filename:      filename,
		OriginalName:  file.Filename,
		FilePath:      filePath,
		MimeType:      file.Header.Get("Content-Type"),
		FileSize:      file.Size,
		ExtractedText: extractedText,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := h.docRepo.Create(doc); err != nil {
		// Cleanup uploaded file if the database insert fails
		h.storageService.DeleteFile(filePath)
		return nil, fiber.StatusInternalServerError,
			fmt.Errorf("failed to save %s document record: %v", docType, err)
	}

	return doc, fiber.StatusCreated, nil
}

func firstFile(form *multipart.Form, field string) *multipart.FileHeader {
	if files, exists := form.File[field]; exists && len(files) > 0 {
		return files[0]
	}
	return nil
}
