// pkg/utils/validation/image.go
package validation

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("arquivo excede o limite de 10MB")
	ErrFileType     = errors.New("tipo de arquivo inválido. Permitidos: JPG, PNG, WEBP")
	ErrFileRequired = errors.New("nenhum arquivo enviado")
	ErrFileContent  = errors.New("o conteúdo do arquivo não é uma imagem válida")
)

const MaxImageSize = 10 * 1024 * 1024 // 10MB

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateImage checks size and extension, then sniffs the first bytes so a
// renamed file is rejected too.
func ValidateImage(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}
	if file.Size > MaxImageSize {
		return ErrFileSize
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return ErrFileType
	}

	src, err := file.Open()
	if err != nil {
		return ErrFileRequired
	}
	defer src.Close()

	return ValidateImageContent(src)
}

func ValidateImageContent(r io.Reader) error {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrFileContent
	}
	if !allowedContentTypes[http.DetectContentType(head[:n])] {
		return ErrFileContent
	}
	return nil
}
