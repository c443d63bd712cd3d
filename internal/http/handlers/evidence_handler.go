package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/gamemarket-backend/internal/dto"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers/common"
	"github.com/ignatzorin/gamemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/gamemarket-backend/internal/storage"
)

// Разрешённые типы файлов для доказательств по спорам
var allowedMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

// EvidenceHandler управляет загрузкой файлов-доказательств к спорам.
type EvidenceHandler struct {
	storage *storage.EvidenceStorage
}

// NewEvidenceHandler создаёт хэндлер.
func NewEvidenceHandler(storage *storage.EvidenceStorage) *EvidenceHandler {
	return &EvidenceHandler{storage: storage}
}

// Upload обрабатывает POST /evidence.
func (h *EvidenceHandler) Upload(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "поле file обязательно")
		return
	}

	if file.Size == 0 {
		common.RespondBadRequest(c, "файл не может быть пустым")
		return
	}

	// Валидация расширения файла
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый формат файла. Разрешены: %s", strings.Join(extensionList(), ", ")))
		return
	}

	src, err := file.Open()
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer src.Close()

	// Читаем первые 512 байт для проверки магических байтов
	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		common.RespondBadRequest(c, "не удалось определить тип файла. Разрешены изображения и PDF")
		return
	}

	contentType := kind.MIME.Value
	if !allowedMimeTypes[contentType] {
		common.RespondBadRequest(c, fmt.Sprintf("неподдерживаемый тип файла (%s)", contentType))
		return
	}

	// Расширение должно соответствовать реальному типу файла.
	// .jpg и .jpeg считаются одним типом.
	expectedExt := "." + kind.Extension
	if ext != expectedExt && !(ext == ".jpg" && expectedExt == ".jpeg") && !(ext == ".jpeg" && expectedExt == ".jpg") {
		common.RespondBadRequest(c, fmt.Sprintf("расширение файла (%s) не соответствует реальному типу (%s)", ext, expectedExt))
		return
	}

	// Сбрасываем позицию файла для сохранения
	if seeker, ok := src.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			common.Fail(c, err)
			return
		}
	}

	relativePath, size, err := h.storage.Save(c.Request.Context(), actor.ID, file.Filename, src)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.EvidenceUploadResponse{
		Filename: filepath.ToSlash(relativePath),
		Size:     size,
		URL:      "/evidence/" + filepath.ToSlash(relativePath),
	})
}

// Delete обрабатывает DELETE /evidence?path=... Удалять можно только
// свои файлы, модератор может удалить любой.
func (h *EvidenceHandler) Delete(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	relativePath := c.Query("path")
	if relativePath == "" || strings.Contains(relativePath, "..") {
		common.RespondBadRequest(c, "параметр path обязателен")
		return
	}

	if !actor.IsModerator() && !strings.HasPrefix(relativePath, actor.ID.String()+"/") {
		common.Fail(c, apperror.ErrForbidden)
		return
	}

	if err := h.storage.Delete(c.Request.Context(), relativePath); err != nil {
		common.Fail(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "файл удалён", nil)
}

func extensionList() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	return out
}
