package storage

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/s3/v2"

	"taskflow/pkg/utils"
)

// StorageService defines methods for attachment storage operations.
type StorageService interface {
	// SaveFile saves an uploaded file under the given key.
	SaveFile(file *multipart.FileHeader, key string, c *fiber.Ctx) error

	// IsFileExtensionAllowed checks if the file extension is allowed.
	IsFileExtensionAllowed(filename string) bool

	// GenerateKeyName generates a random key name for file storage.
	GenerateKeyName() string
}

type storageService struct {
	storage *s3.Storage
}

// NewStorageService creates a new StorageService backed by S3.
func NewStorageService(storage *s3.Storage) StorageService {
	return &storageService{
		storage: storage,
	}
}

func (s *storageService) SaveFile(file *multipart.FileHeader, key string, c *fiber.Ctx) error {
	return c.SaveFileToStorage(file, key, s.storage)
}

func (s *storageService) IsFileExtensionAllowed(filename string) bool {
	allowedExtensions := []string{"jpg", "jpeg", "png", "pdf", "doc", "docx", "xls", "xlsx", "csv", "txt", "zip"}
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return true
		}
	}
	return false
}

func (s *storageService) GenerateKeyName() string {
	return strings.ToLower(utils.GenerateRandomString(16))
}
