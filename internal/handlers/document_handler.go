package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/akbaraffaruk/cv-analysis/internal/repositories"
	"github.com/akbaraffaruk/cv-analysis/internal/services"
)

type DocumentHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
}

func NewDocumentHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
) *DocumentHandler {
	return &DocumentHandler{
		docRepo:        docRepo,
		storageService: storageService,
	}
}

// HandleGetDocument handles GET /documents/:id.
func (h *DocumentHandler) HandleGetDocument(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID format",
		})
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"id":            doc.ID.String(),
			"type":          doc.Type,
			"original_name": doc.OriginalName,
			"file_size":     doc.FileSize,
			"created_at":    doc.CreatedAt,
		},
	})
}

// HandleDeleteDocument handles DELETE /documents/:id. Deletion does not
// cascade into in-flight evaluations referencing the document.
func (h *DocumentHandler) HandleDeleteDocument(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID format",
		})
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	if err := h.storageService.DeleteFile(doc.FilePath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document file",
		})
	}

	if err := h.docRepo.Delete(doc.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete document record",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Document deleted successfully",
	})
}
