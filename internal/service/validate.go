package service

import (
	"mime/multipart"
	"strings"

	"skyvision/internal/service/storage"
)

// FormField is the multipart field carrying the image.
const FormField = "image"

// SupportedFormats lists the accepted upload extensions.
var SupportedFormats = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp"}

// SupportedFormatsMessage is returned when an upload has another extension.
var SupportedFormatsMessage = "Invalid file type. Supported formats: " + strings.Join(SupportedFormats, ", ")

// AllowedExtension reports whether ext (without dot, any case) is accepted.
func AllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, format := range SupportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ValidateUpload picks the image part out of a parsed form. It never touches
// the disk or the model.
func ValidateUpload(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, newError(KindMissingPart, MessageMissingPart)
	}

	headers := form.File[FormField]
	if len(headers) == 0 {
		// A part sent with an empty filename is parsed as a plain value.
		if _, ok := form.Value[FormField]; ok {
			return nil, newError(KindNoFile, MessageNoFile)
		}
		return nil, newError(KindMissingPart, MessageMissingPart)
	}

	header := headers[0]
	if header.Filename == "" {
		return nil, newError(KindNoFile, MessageNoFile)
	}

	_, ext := storage.SplitExtension(header.Filename)
	if !AllowedExtension(ext) {
		return nil, newError(KindUnsupportedType, SupportedFormatsMessage)
	}

	return header, nil
}
